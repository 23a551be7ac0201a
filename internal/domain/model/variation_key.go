package model

import (
	"errors"
	"sort"
	"strings"
)

var ErrInvalidVariation = errors.New("invalid variation selection")

// VariationKey は選択バリエーションを順序に依存しないキーにする。
// 属性名はtrim+小文字、値はtrimのみ。属性名で並べて "attr=value" を ";" で連結する。
func VariationKey(selected map[string]string) (string, error) {
	if len(selected) == 0 {
		return "", nil
	}

	normalized := make(map[string]string, len(selected))
	names := make([]string, 0, len(selected))
	for k, v := range selected {
		name := strings.ToLower(strings.TrimSpace(k))
		value := strings.TrimSpace(v)
		if name == "" || value == "" {
			return "", ErrInvalidVariation
		}
		if strings.ContainsAny(name, "=;") || strings.ContainsAny(value, "=;") {
			return "", ErrInvalidVariation
		}
		//大文字違いの重複
		if _, dup := normalized[name]; dup {
			return "", ErrInvalidVariation
		}
		normalized[name] = value
		names = append(names, name)
	}

	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+normalized[name])
	}
	return strings.Join(pairs, ";"), nil
}
