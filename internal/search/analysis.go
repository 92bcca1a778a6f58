// Package search 基于倒排索引实现关键字、拼音与多条件检索
package search

import (
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/go-ego/gse"

	"seedsearch/internal/pinyin"
)

// 自定义分析组件名称
const (
	TokenizerGseMax    = "gse_max"    // 全模式切分，建索引用
	TokenizerGseSearch = "gse_search" // 搜索模式切分，查询用
	FilterPinyinFull   = "pinyin_full_filter"
	FilterPinyinFirst  = "pinyin_first_filter"

	AnalyzerZhMax       = "zh_max"
	AnalyzerZhSmart     = "zh_smart"
	AnalyzerPinyinFull  = "pinyin_full"
	AnalyzerPinyinFirst = "pinyin_first_letter"
)

var (
	segOnce sync.Once
	seg     gse.Segmenter
	segErr  error
)

// sharedSegmenter 全局共享的分词器，词典只加载一次
func sharedSegmenter(extraDicts ...string) (*gse.Segmenter, error) {
	segOnce.Do(func() {
		segErr = seg.LoadDict(extraDicts...)
	})
	if segErr != nil {
		return nil, segErr
	}
	return &seg, nil
}

// gseTokenizer 基于gse的中文切分器
// searchMode为真时采用搜索引擎模式（粗粒度），否则全模式（细粒度）
type gseTokenizer struct {
	seg        *gse.Segmenter
	searchMode bool
}

// cut 产出词元。建索引时合并全模式、搜索模式与连续汉字段三路切分，
// 保证查询侧搜索模式切出的任何词在索引侧都存在
func (t *gseTokenizer) cut(text string) []string {
	if t.searchMode {
		return t.seg.CutSearch(text, true)
	}
	words := t.seg.CutAll(text)
	words = append(words, t.seg.CutSearch(text, true)...)
	words = append(words, hanRuns(text)...)

	seen := make(map[string]bool, len(words))
	uniq := words[:0]
	for _, w := range words {
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		uniq = append(uniq, w)
	}
	return uniq
}

func (t *gseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	words := t.cut(text)

	stream := make(analysis.TokenStream, 0, len(words))
	position := 0
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		// 多路切分会产出重叠词，偏移只作高亮参考，定位失败时回退整段
		s := strings.Index(text, w)
		e := s + len(w)
		if s < 0 {
			s = 0
			e = len(text)
		}

		position++
		stream = append(stream, &analysis.Token{
			Term:     []byte(w),
			Start:    s,
			End:      e,
			Position: position,
			Type:     tokenType(w),
		})
	}
	return stream
}

// hanRuns 提取连续两个汉字以上的片段，未登录的复合词
// （如新品种名中的"华优"）靠这一路进入索引
func hanRuns(text string) []string {
	var runs []string
	var pending []rune
	flush := func() {
		if len(pending) >= 2 {
			runs = append(runs, string(pending))
		}
		pending = pending[:0]
	}
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			pending = append(pending, r)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func tokenType(w string) analysis.TokenType {
	for _, r := range w {
		if unicode.Is(unicode.Han, r) {
			return analysis.Ideographic
		}
	}
	return analysis.AlphaNumeric
}

// pinyinFilter 将词元中的汉字转成拼音，非汉字词元原样保留
type pinyinFilter struct {
	firstLetter bool
}

func (f *pinyinFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		term := string(tok.Term)
		if !containsHan(term) {
			continue
		}
		if f.firstLetter {
			tok.Term = []byte(pinyin.Short(term))
		} else {
			tok.Term = []byte(pinyin.FullJoined(term))
		}
		tok.Type = analysis.AlphaNumeric
	}
	return input
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func init() {
	registry.RegisterTokenizer(TokenizerGseMax,
		func(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
			s, err := sharedSegmenter()
			if err != nil {
				return nil, err
			}
			return &gseTokenizer{seg: s, searchMode: false}, nil
		})

	registry.RegisterTokenizer(TokenizerGseSearch,
		func(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
			s, err := sharedSegmenter()
			if err != nil {
				return nil, err
			}
			return &gseTokenizer{seg: s, searchMode: true}, nil
		})

	registry.RegisterTokenFilter(FilterPinyinFull,
		func(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
			return &pinyinFilter{firstLetter: false}, nil
		})

	registry.RegisterTokenFilter(FilterPinyinFirst,
		func(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
			return &pinyinFilter{firstLetter: true}, nil
		})
}
