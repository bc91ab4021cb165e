package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OuterJoin une duas tabelas pela coluna chave mantendo linhas presentes em qualquer lado.
// Colunas de right que já existem em left recebem o sufixo. Chaves repetidas geram o
// produto cartesiano dos pares, como no merge do pandas.
func OuterJoin(left, right *Table, key, suffix string) (*Table, error) {
	lk := left.Index(key)
	if lk < 0 {
		return nil, fmt.Errorf("left table has no %q column", key)
	}
	rk := right.Index(key)
	if rk < 0 {
		return nil, fmt.Errorf("right table has no %q column", key)
	}

	// colunas de right (sem a chave) e seus nomes finais
	rightCols := make([]int, 0, len(right.Columns))
	columns := append([]string{}, left.Columns...)
	for i, c := range right.Columns {
		if i == rk {
			continue
		}
		name := c
		if left.Has(c) {
			name = c + suffix
		}
		rightCols = append(rightCols, i)
		columns = append(columns, name)
	}

	rightByKey := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		rightByKey[row[rk]] = append(rightByKey[row[rk]], i)
	}

	out := New(columns...)
	matched := make([]bool, len(right.Rows))
	width := len(left.Columns)

	for _, lrow := range left.Rows {
		matches := rightByKey[lrow[lk]]
		if len(matches) == 0 {
			out.AddRow(lrow...)
			continue
		}
		for _, m := range matches {
			matched[m] = true
			row := make([]string, len(columns))
			copy(row, lrow)
			for j, rc := range rightCols {
				row[width+j] = right.Rows[m][rc]
			}
			out.Rows = append(out.Rows, row)
		}
	}

	for i, rrow := range right.Rows {
		if matched[i] {
			continue
		}
		row := make([]string, len(columns))
		row[lk] = rrow[rk]
		for j, rc := range rightCols {
			row[width+j] = rrow[rc]
		}
		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// DropSuffixed remove todas as colunas cujo nome termina com o sufixo
func (t *Table) DropSuffixed(suffix string) *Table {
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !strings.HasSuffix(c, suffix) {
			keep = append(keep, i)
		}
	}
	return t.project(keep)
}

func (t *Table) project(indexes []int) *Table {
	cols := make([]string, len(indexes))
	for i, idx := range indexes {
		cols[i] = t.Columns[idx]
	}
	out := New(cols...)
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(indexes))
		for i, idx := range indexes {
			nr[i] = row[idx]
		}
		out.Rows[r] = nr
	}
	return out
}

// Concat empilha tabelas. As colunas são a união na ordem em que aparecem.
func Concat(tables ...*Table) *Table {
	columns := make([]string, 0)
	seen := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := seen[c]; !ok {
				seen[c] = len(columns)
				columns = append(columns, c)
			}
		}
	}

	out := New(columns...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		positions := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			positions[i] = seen[c]
		}
		for _, row := range t.Rows {
			nr := make([]string, len(columns))
			for i, v := range row {
				nr[positions[i]] = v
			}
			out.Rows = append(out.Rows, nr)
		}
	}
	return out
}

// SortBy ordena (estável, não decrescente) pela coluna. Sem a coluna, retorna cópia.
func (t *Table) SortBy(column string) *Table {
	out := t.Clone()
	idx := out.Index(column)
	if idx < 0 {
		return out
	}

	less := comparatorFor(out.Column(column))
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return less(out.Rows[i][idx], out.Rows[j][idx])
	})
	return out
}

// GroupSum agrupa pela chave somando as colunas numéricas informadas.
// Chaves vazias são descartadas e os grupos saem ordenados pela chave.
func (t *Table) GroupSum(key string, columns ...string) (*Table, error) {
	k := t.Index(key)
	if k < 0 {
		return nil, fmt.Errorf("group key %q not found", key)
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}

	sums := make(map[string][]float64)
	keys := make([]string, 0)
	for _, row := range t.Rows {
		kv := row[k]
		if kv == "" {
			continue
		}
		acc, ok := sums[kv]
		if !ok {
			acc = make([]float64, len(columns))
			sums[kv] = acc
			keys = append(keys, kv)
		}
		for i, ci := range idx {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64); err == nil {
				acc[i] += v
			}
		}
	}

	less := comparatorFor(keys)
	sort.SliceStable(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	out := New(append([]string{key}, columns...)...)
	for _, kv := range keys {
		row := make([]string, 0, len(columns)+1)
		row = append(row, kv)
		for _, v := range sums[kv] {
			row = append(row, FormatFloat(v))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Rename renomeia apenas as colunas existentes
func (t *Table) Rename(mapping map[string]string) *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		if name, ok := mapping[c]; ok {
			out.Columns[i] = name
		}
	}
	return out
}

// WithConstant adiciona (ou sobrescreve) uma coluna com valor constante
func (t *Table) WithConstant(column, value string) *Table {
	out := t.Clone()
	idx := out.Index(column)
	if idx < 0 {
		out.Columns = append(out.Columns, column)
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], value)
		}
		return out
	}
	for i := range out.Rows {
		out.Rows[i][idx] = value
	}
	return out
}

// Filter mantém as linhas em que a coluna tem exatamente o valor
func (t *Table) Filter(column, value string) *Table {
	idx := t.Index(column)
	out := New(t.Columns...)
	if idx < 0 {
		return out
	}
	for _, row := range t.Rows {
		if row[idx] == value {
			nr := make([]string, len(row))
			copy(nr, row)
			out.Rows = append(out.Rows, nr)
		}
	}
	return out
}

// FormatFloat formata sem casas decimais supérfluas (3, 2.5, 0.125)
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
