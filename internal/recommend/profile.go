// Package recommend 基于检索历史生成个性化品种推荐
package recommend

import (
	"strings"

	"seedsearch/internal/models"
)

// profileHistoryLimit 画像采样的历史条数上限
const profileHistoryLimit = 50

// BuildProfile 从检索历史派生用户画像
// 画像在请求时计算，不落库
func BuildProfile(userID string, rows []models.SearchHistory) *models.UserProfile {
	profile := &models.UserProfile{
		UserID:            userID,
		CropTypeFrequency: make(map[string]int),
		RegionFrequency:   make(map[string]int),
		TotalSearchCount:  len(rows),
	}

	seen := make(map[string]bool)
	for i, row := range rows {
		if i == 0 {
			profile.LastSearchTime = row.CreatedAt
		}
		query := strings.TrimSpace(row.Query)
		if query == "" {
			continue
		}
		if !seen[query] && len(profile.SearchKeywords) < profileHistoryLimit {
			seen[query] = true
			profile.SearchKeywords = append(profile.SearchKeywords, query)
		}
		for _, crop := range models.CropTypes {
			if strings.Contains(query, crop) {
				profile.CropTypeFrequency[crop]++
			}
		}
		for _, region := range models.Regions {
			if strings.Contains(query, region) {
				profile.RegionFrequency[region]++
			}
		}
	}

	profile.PreferredCropType = argmax(models.CropTypes, profile.CropTypeFrequency)
	profile.PreferredRegion = argmax(models.Regions, profile.RegionFrequency)
	return profile
}

// argmax 频次最高的取值，并列时取词表靠前者，全零返回空串
func argmax(vocab []string, freq map[string]int) string {
	best := ""
	bestCount := 0
	for _, v := range vocab {
		if freq[v] > bestCount {
			best = v
			bestCount = freq[v]
		}
	}
	return best
}
