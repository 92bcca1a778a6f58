package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seedsearch/internal/config"
	"seedsearch/internal/models"
	"seedsearch/internal/pinyin"
	"seedsearch/internal/store"
)

func newTestEnv(t *testing.T) (*Service, *Index, *store.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Seed{}, &models.SeedApproval{}, &models.SearchHistory{}))
	st := store.NewWithDB(db)

	idx, err := NewIndex(&config.LexicalConfig{Path: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return NewService(idx, st), idx, st
}

func indexSeed(t *testing.T, st *store.Store, idx *Index, seed *models.Seed) {
	t.Helper()
	require.NoError(t, st.CreateSeed(context.Background(), seed))
	doc := models.SeedDoc{
		ID:                     seed.ID,
		VarietyName:            seed.VarietyName,
		VarietyNamePinyin:      pinyin.Searchable(seed.VarietyName),
		VarietyNamePinyinShort: pinyin.Short(seed.VarietyName),
		ApprovalNumber:         seed.ApprovalNumber,
		ApprovalYear:           seed.ApprovalYear,
		ApprovalRegion:         seed.ApprovalRegion,
		CropType:               seed.CropType,
		Company:                seed.Company,
		CompanyPinyin:          pinyin.Searchable(seed.Company),
		Description:            seed.Description,
	}
	require.NoError(t, idx.IndexSeed(&doc))
}

func fixtures(t *testing.T, st *store.Store, idx *Index) []*models.Seed {
	seeds := []*models.Seed{
		{VarietyName: "稻花香2号", ApprovalNumber: "国审稻20210001", ApprovalYear: 2021,
			ApprovalRegion: "东北", CropType: models.CropTypeRice, Company: "五常种业",
			Description: "优质香稻，米质优良"},
		{VarietyName: "郑单958", ApprovalNumber: "国审玉20220002", ApprovalYear: 2022,
			ApprovalRegion: "华中", CropType: models.CropTypeCorn, Company: "河南秋乐种业",
			Description: "高产稳产玉米杂交种"},
		{VarietyName: "济麦22", ApprovalNumber: "国审麦20230003", ApprovalYear: 2023,
			ApprovalRegion: "华北", CropType: models.CropTypeWheat, Company: "山东鲁研农业",
			Description: "冬小麦品种，抗寒抗倒伏"},
	}
	for _, s := range seeds {
		indexSeed(t, st, idx, s)
	}
	return seeds
}

func TestSearchChineseKeyword(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	res, err := svc.Search(context.Background(), "玉米", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "郑单958", res.Items[0].VarietyName)
}

func TestSearchExactVarietyName(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	res, err := svc.Search(context.Background(), "稻花香2号", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "稻花香2号", res.Items[0].VarietyName)
}

func TestSearchPinyinShort(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	// 济麦22 -> jm22，首字母前缀 jm 可以命中
	res, err := svc.Search(context.Background(), "jm", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "济麦22", res.Items[0].VarietyName)
}

func TestSearchUnlistedCompoundName(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	indexSeed(t, st, idx, &models.Seed{
		VarietyName: "华优1号", ApprovalNumber: "国审稻20240009", ApprovalYear: 2024,
		ApprovalRegion: "华东", CropType: models.CropTypeRice, Company: "华南农业大学",
	})
	ctx := context.Background()

	// 新品种名不在词典里，中文前缀、连写全拼、首字母三种写法都要能召回
	for _, kw := range []string{"华优", "huayou", "hy"} {
		res, err := svc.Search(ctx, kw, 0, 10)
		require.NoError(t, err, "keyword %q", kw)
		require.NotEmpty(t, res.Items, "keyword %q", kw)
		assert.Equal(t, "华优1号", res.Items[0].VarietyName, "keyword %q", kw)
	}
}

func TestSearchPinyinMixedCaseName(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	indexSeed(t, st, idx, &models.Seed{
		VarietyName: "DK517", ApprovalNumber: "国审玉20250001", ApprovalYear: 2025,
		ApprovalRegion: "华北", CropType: models.CropTypeCorn, Company: "孟山都",
	})

	// 缩写字段统一小写，大小写混合的品种名按小写前缀命中
	res, err := svc.Search(context.Background(), "dk", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "DK517", res.Items[0].VarietyName)
}

func TestSearchEmptyKeywordRejected(t *testing.T) {
	svc, _, _ := newTestEnv(t)

	_, err := svc.Search(context.Background(), "   ", 0, 10)
	assert.Error(t, err)
}

func TestSearchByCropTypeAndRegion(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)
	ctx := context.Background()

	res, err := svc.SearchByCropType(ctx, models.CropTypeRice, 0, 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "稻花香2号", res.Items[0].VarietyName)

	res, err = svc.SearchByRegion(ctx, "华北", 0, 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "济麦22", res.Items[0].VarietyName)

	// 无匹配返回空集而非错误
	res, err = svc.SearchByCropType(ctx, models.CropTypeSoybean, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestSuggestApprovalNumbers(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	numbers, err := svc.SuggestApprovalNumbers(context.Background(), "国审稻")
	require.NoError(t, err)
	require.Len(t, numbers, 1)
	assert.Equal(t, "国审稻20210001", numbers[0])
}

func TestAdvancedSearchConjunction(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	res, err := svc.AdvancedSearch(context.Background(), &models.AdvancedSearchRequest{
		CropTypes: []string{models.CropTypeCorn, models.CropTypeWheat},
		YearFrom:  2023,
		PageSize:  10,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "济麦22", res.Items[0].VarietyName)
}

func TestAdvancedSearchYearRange(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	res, err := svc.AdvancedSearch(context.Background(), &models.AdvancedSearchRequest{
		YearFrom: 2021,
		YearTo:   2022,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestAdvancedSearchApprovalPrefilter(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	seeds := fixtures(t, st, idx)
	ctx := context.Background()

	approval := &models.SeedApproval{
		ID:             "ap-1",
		ApprovalNumber: seeds[0].ApprovalNumber,
		VarietyName:    seeds[0].VarietyName,
		CropName:       models.CropTypeRice,
		ApprovalYear:   2021,
		Applicant:      "五常市农业技术推广中心",
		IsGMO:          false,
	}
	require.NoError(t, st.CreateApproval(ctx, approval))
	require.NoError(t, idx.IndexApproval(&models.ApprovalDoc{
		ID:             approval.ID,
		ApprovalNumber: approval.ApprovalNumber,
		VarietyName:    approval.VarietyName,
		Applicant:      approval.Applicant,
		IsGMO:          approval.IsGMO,
		ApprovalYear:   approval.ApprovalYear,
	}))

	res, err := svc.AdvancedSearch(ctx, &models.AdvancedSearchRequest{
		Applicants: []string{"五常市农业技术推广中心"},
		PageSize:   10,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "稻花香2号", res.Items[0].VarietyName)

	// 审定条件无命中时整体为空
	res, err = svc.AdvancedSearch(ctx, &models.AdvancedSearchRequest{
		Applicants: []string{"不存在的单位"},
		PageSize:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestListVocabularies(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	fixtures(t, st, idx)
	ctx := context.Background()

	crops, err := svc.ListCropTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CropTypes, crops[:len(models.CropTypes)])

	companies, err := svc.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 3)

	regions, err := svc.ListRegions(ctx)
	require.NoError(t, err)
	assert.Contains(t, regions, "东北")
}

func TestDeleteSeedRemovesFromIndex(t *testing.T) {
	svc, idx, st := newTestEnv(t)
	seeds := fixtures(t, st, idx)
	ctx := context.Background()

	require.NoError(t, idx.DeleteSeed(seeds[1].ID))

	res, err := svc.SearchByCropType(ctx, models.CropTypeCorn, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestResetSeeds(t *testing.T) {
	_, idx, st := newTestEnv(t)
	fixtures(t, st, idx)

	n, err := idx.SeedCount()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, idx.ResetSeeds())
	n, err = idx.SeedCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}
