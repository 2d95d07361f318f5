package models

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// Matrix is a horizon x ticker table. Rows are fixed at construction,
// columns are appended one ticker at a time.
type Matrix[T any] struct {
	Rows  []string `json:"rows"`
	Cols  []string `json:"cols"`
	Cells [][]T    `json:"cells"` // Cells[row][col]
}

// VolMatrix holds annualized realized volatilities; invalid cells are undefined.
type VolMatrix = Matrix[null.Float]

// DiffMatrix holds relative differences.
type DiffMatrix = Matrix[Cell]

// NewMatrix creates a matrix with the given rows and no columns.
func NewMatrix[T any](rows []string) Matrix[T] {
	r := make([]string, len(rows))
	copy(r, rows)
	return Matrix[T]{
		Rows:  r,
		Cols:  []string{},
		Cells: make([][]T, len(rows)),
	}
}

// AddColumn appends one column. values must have one entry per row.
func (m *Matrix[T]) AddColumn(col string, values []T) error {
	if len(values) != len(m.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows: %w", col, len(values), len(m.Rows), ErrShapeMismatch)
	}
	if m.ColIndex(col) >= 0 {
		return fmt.Errorf("duplicate column %q: %w", col, ErrShapeMismatch)
	}
	m.Cols = append(m.Cols, col)
	for i := range m.Rows {
		m.Cells[i] = append(m.Cells[i], values[i])
	}
	return nil
}

// ColIndex returns the position of col, or -1.
func (m *Matrix[T]) ColIndex(col string) int {
	for i, c := range m.Cols {
		if c == col {
			return i
		}
	}
	return -1
}

// RowIndex returns the position of row, or -1.
func (m *Matrix[T]) RowIndex(row string) int {
	for i, r := range m.Rows {
		if r == row {
			return i
		}
	}
	return -1
}

// Get returns the cell at (row, col).
func (m *Matrix[T]) Get(row, col string) (T, bool) {
	var zero T
	r, c := m.RowIndex(row), m.ColIndex(col)
	if r < 0 || c < 0 {
		return zero, false
	}
	return m.Cells[r][c], true
}

// Column returns a copy of one column.
func (m *Matrix[T]) Column(col string) ([]T, bool) {
	c := m.ColIndex(col)
	if c < 0 {
		return nil, false
	}
	out := make([]T, len(m.Rows))
	for r := range m.Rows {
		out[r] = m.Cells[r][c]
	}
	return out, true
}

// Empty reports whether the matrix has no columns.
func (m *Matrix[T]) Empty() bool { return len(m.Cols) == 0 }

// Shape returns (rows, cols).
func (m *Matrix[T]) Shape() (int, int) { return len(m.Rows), len(m.Cols) }

// Select returns a new matrix restricted to cols, in the given order.
func (m *Matrix[T]) Select(cols []string) (Matrix[T], error) {
	out := NewMatrix[T](m.Rows)
	for _, col := range cols {
		values, ok := m.Column(col)
		if !ok {
			return Matrix[T]{}, fmt.Errorf("unknown column %q: %w", col, ErrShapeMismatch)
		}
		if err := out.AddColumn(col, values); err != nil {
			return Matrix[T]{}, err
		}
	}
	return out, nil
}

// Cell is one relative-difference entry. An invalid Value is undefined;
// Singular marks a zero realized-volatility denominator.
type Cell struct {
	Value    null.Float `json:"value"`
	Singular bool       `json:"singular,omitempty"`
}

// DefinedCell wraps a finite value.
func DefinedCell(v float64) Cell { return Cell{Value: null.FloatFrom(v)} }

// SingularCell marks a division by a zero denominator.
func SingularCell() Cell { return Cell{Singular: true} }

// Defined reports whether the cell carries a usable value.
func (c Cell) Defined() bool { return c.Value.Valid && !c.Singular }
