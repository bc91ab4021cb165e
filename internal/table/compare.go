package table

import (
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type valueKind int

const (
	kindNumber valueKind = iota
	kindTime
	kindString
)

// comparatorFor escolhe a comparação a partir dos valores não vazios da coluna:
// numérica se todos forem números, temporal se todos forem datas, senão lexical.
// Vazios sempre vão para o fim.
func comparatorFor(values []string) func(a, b string) bool {
	kind := detectKind(values)

	return func(a, b string) bool {
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if a == "" || b == "" {
			return a != "" && b == ""
		}

		switch kind {
		case kindNumber:
			fa, _ := strconv.ParseFloat(a, 64)
			fb, _ := strconv.ParseFloat(b, 64)
			return fa < fb
		case kindTime:
			ta, _ := parseTime(a)
			tb, _ := parseTime(b)
			return ta.Before(tb)
		default:
			return a < b
		}
	}
}

func detectKind(values []string) valueKind {
	numeric, temporal, seen := true, true, false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen = true
		if numeric {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
			}
		}
		if temporal {
			if _, ok := parseTime(v); !ok {
				temporal = false
			}
		}
		if !numeric && !temporal {
			return kindString
		}
	}

	switch {
	case !seen:
		return kindString
	case numeric:
		return kindNumber
	case temporal:
		return kindTime
	}
	return kindString
}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
