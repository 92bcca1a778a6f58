package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seedsearch/internal/errors"
	"seedsearch/internal/models"
)

func newTestStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Seed{}, &models.SeedApproval{}, &models.SearchHistory{}))
	return NewWithDB(db)
}

func seedFixture(name, number string, year int, cropType, region, company string) *models.Seed {
	return &models.Seed{
		VarietyName:    name,
		ApprovalNumber: number,
		ApprovalYear:   year,
		ApprovalRegion: region,
		CropType:       cropType,
		Company:        company,
	}
}

func TestSeedCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := seedFixture("济麦22", "国审麦20230001", 2023, models.CropTypeWheat, "华北", "山东种业")
	require.NoError(t, s.CreateSeed(ctx, seed))
	assert.NotZero(t, seed.ID)

	got, err := s.GetSeed(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, "济麦22", got.VarietyName)

	byNumber, err := s.GetSeedByApprovalNumber(ctx, "国审麦20230001")
	require.NoError(t, err)
	assert.Equal(t, seed.ID, byNumber.ID)

	// 非零值合并更新，未提供的字段保持不变
	updated, err := s.UpdateSeed(ctx, seed.ID, &models.Seed{Company: "河北种业"})
	require.NoError(t, err)
	assert.Equal(t, "河北种业", updated.Company)
	assert.Equal(t, "济麦22", updated.VarietyName)

	require.NoError(t, s.DeleteSeed(ctx, seed.ID))
	_, err = s.GetSeed(ctx, seed.ID)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeNotFound, appErr.Type)
}

func TestListSeedsFilterAndSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixtures := []*models.Seed{
		seedFixture("稻花香2号", "国审稻20210001", 2021, models.CropTypeRice, "东北", "五常种业"),
		seedFixture("郑单958", "国审玉20220002", 2022, models.CropTypeCorn, "华中", "河南种业"),
		seedFixture("先玉335", "国审玉20230003", 2023, models.CropTypeCorn, "华北", "铁岭先锋"),
	}
	for _, f := range fixtures {
		require.NoError(t, s.CreateSeed(ctx, f))
	}

	// 默认按审定年份倒序
	res, err := s.ListSeeds(ctx, ListOptions{PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Equal(t, "先玉335", res.Items[0].VarietyName)

	// 作物类型过滤
	res, err = s.ListSeeds(ctx, ListOptions{CropType: models.CropTypeCorn, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	// 年份区间
	res, err = s.ListSeeds(ctx, ListOptions{YearFrom: 2022, YearTo: 2022, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, "郑单958", res.Items[0].VarietyName)

	// 非法排序字段回退到默认列，不报错
	res, err = s.ListSeeds(ctx, ListOptions{SortBy: "evil; DROP TABLE seeds", PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
}

func TestSearchSeedsLike(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSeed(ctx, seedFixture("稻花香2号", "国审稻20210001", 2021, models.CropTypeRice, "东北", "五常种业")))
	require.NoError(t, s.CreateSeed(ctx, seedFixture("郑单958", "国审玉20220002", 2022, models.CropTypeCorn, "华中", "河南种业")))

	res, err := s.SearchSeedsLike(ctx, "稻花", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, "稻花香2号", res.Items[0].VarietyName)

	res, err = s.SearchSeedsLike(ctx, "种业", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
}

func TestListSeedsChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seed := seedFixture("品种", "编号", 2020+i, models.CropTypeRice, "华东", "公司")
		seed.VarietyName = seed.VarietyName + string(rune('A'+i))
		seed.ApprovalNumber = seed.ApprovalNumber + string(rune('A'+i))
		require.NoError(t, s.CreateSeed(ctx, seed))
	}

	var all []models.Seed
	var afterID int64
	for {
		chunk, err := s.ListSeedsChunk(ctx, afterID, 2)
		require.NoError(t, err)
		if len(chunk) == 0 {
			break
		}
		all = append(all, chunk...)
		afterID = chunk[len(chunk)-1].ID
	}
	assert.Len(t, all, 5)
}

func TestApprovalCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	approval := &models.SeedApproval{
		ID:             "ap-001",
		ApprovalNumber: "国审稻20230009",
		VarietyName:    "南粳46",
		CropName:       models.CropTypeRice,
		ApprovalYear:   2023,
		Applicant:      "江苏省农科院",
		YieldData: []models.YieldRecord{
			{Year: 2022, Location: "华东", YieldValue: 650, YieldUnit: "公斤/亩"},
		},
		SuitableRegions: []string{"华东", "华中"},
	}
	require.NoError(t, s.CreateApproval(ctx, approval))

	got, err := s.GetApprovalByNumber(ctx, "国审稻20230009")
	require.NoError(t, err)
	assert.Equal(t, "南粳46", got.VarietyName)
	assert.Len(t, got.YieldData, 1)

	updated, err := s.UpdateApproval(ctx, "ap-001", &models.SeedApproval{Breeder: "王才林"})
	require.NoError(t, err)
	assert.Equal(t, "王才林", updated.Breeder)
	assert.Equal(t, got.Version+1, updated.Version)

	require.NoError(t, s.DeleteApproval(ctx, "ap-001"))
	_, err = s.GetApproval(ctx, "ap-001")
	assert.Error(t, err)
}

func TestHistoryHotAndUserQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save := func(user, query string) {
		require.NoError(t, s.SaveHistory(ctx, &models.SearchHistory{
			UserID:     user,
			Query:      query,
			SearchType: models.SearchTypeKeyword,
		}))
	}
	save("u1", "水稻")
	save("u2", "水稻")
	save("u1", "玉米")
	save("u1", "水稻")

	hot, err := s.TopQueries(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hot)
	assert.Equal(t, "水稻", hot[0].Query)
	assert.EqualValues(t, 3, hot[0].SearchCount)

	recent, err := s.UserHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Contains(t, recent, "水稻")
	assert.Contains(t, recent, "玉米")

	require.NoError(t, s.ClearHistory(ctx, "u1"))
	recent, err = s.UserHistory(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestDeleteHistoryOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := &models.SearchHistory{UserID: "u1", Query: "大豆", SearchType: models.SearchTypeKeyword}
	require.NoError(t, s.SaveHistory(ctx, h))

	// 他人无法删除
	err := s.DeleteHistory(ctx, h.ID, "u2")
	assert.Error(t, err)

	require.NoError(t, s.DeleteHistory(ctx, h.ID, "u1"))
}
