package topic

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// compiledPattern 预编译的订阅模式，按层级切分。
// "**" 只允许作为最后一个层级出现，否则整个模式视为非法
type compiledPattern struct {
	segments []string
	hasRest  bool // 末尾是否为 "**"
	invalid  bool
}

var patternCache = expirable.NewLRU[string, *compiledPattern](512, nil, time.Hour)

func compilePattern(pattern string) *compiledPattern {
	if cached, ok := patternCache.Get(pattern); ok {
		return cached
	}
	segments := strings.Split(pattern, "/")
	compiled := &compiledPattern{segments: segments}
	if len(segments) > 0 && segments[len(segments)-1] == "**" {
		compiled.segments = segments[:len(segments)-1]
		compiled.hasRest = true
	}
	for _, segment := range compiled.segments {
		if segment == "**" {
			compiled.invalid = true
			break
		}
	}
	patternCache.Add(pattern, compiled)
	return compiled
}

// MatchWildcard 全串匹配订阅模式与具体主题。
// "*" 匹配恰好一个层级，"**" 匹配剩余零个或多个层级；
// 非法模式（"**" 不在末尾）不匹配任何主题。
func MatchWildcard(pattern string, topic string) bool {
	compiled := compilePattern(pattern)
	if compiled.invalid {
		return false
	}
	levels := strings.Split(topic, "/")

	for i, segment := range compiled.segments {
		if i >= len(levels) {
			return false
		}
		if segment == "*" {
			continue
		}
		if segment != levels[i] {
			return false
		}
	}

	if compiled.hasRest {
		return len(levels) >= len(compiled.segments)
	}
	return len(levels) == len(compiled.segments)
}
