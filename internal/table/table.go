package table

// Table representa um CSV em memória: colunas ordenadas e linhas de células texto.
// Células ausentes são strings vazias.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New cria uma tabela vazia com as colunas informadas
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Columns: cols,
		Rows:    make([][]string, 0),
	}
}

// Index retorna a posição da coluna ou -1
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Has verifica se a coluna existe
func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

// Len retorna o número de linhas
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// AddRow adiciona uma linha, completando ou truncando para a largura da tabela
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Value retorna a célula da linha/coluna (vazio se a coluna não existe)
func (t *Table) Value(row int, column string) string {
	idx := t.Index(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// Column retorna todos os valores de uma coluna
func (t *Table) Column(column string) []string {
	idx := t.Index(column)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// Clone retorna cópia profunda
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Records retorna as linhas como mapas coluna -> valor (usado pela API web)
func (t *Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		records = append(records, rec)
	}
	return records
}
