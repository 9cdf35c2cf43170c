// Package selftest plays scripted matches through a session and checks that the
// engine reports the expected terminal condition on the last move and never earlier.
package selftest

import (
	"fmt"

	"github.com/jaminalder/gridmatch/internal/domain"
)

// Script is a full match: alternating moves, starting player first. Expect is the
// outcome of the last move; a Win belongs to the starting player.
type Script struct {
	Name   string
	Moves  []domain.Pos
	Expect domain.Outcome
}

// RowWin has the starting player fill row while the opponent plays the next row.
func RowWin(n, row int) Script {
	mine := make([]domain.Pos, n)
	theirs := make([]domain.Pos, n-1)
	for c := 0; c < n; c++ {
		mine[c] = domain.Pos{Row: row, Col: c}
		if c < n-1 {
			theirs[c] = domain.Pos{Row: (row + 1) % n, Col: c}
		}
	}
	return Script{Name: fmt.Sprintf("row %d", row), Moves: interleave(mine, theirs), Expect: domain.Win}
}

// ColumnWin is RowWin transposed.
func ColumnWin(n, col int) Script {
	s := RowWin(n, col)
	for i, p := range s.Moves {
		s.Moves[i] = domain.Pos{Row: p.Col, Col: p.Row}
	}
	s.Name = fmt.Sprintf("column %d", col)
	return s
}

// MainDiagonalWin has the starting player take (i, i).
func MainDiagonalWin(n int) Script {
	mine := make([]domain.Pos, n)
	theirs := make([]domain.Pos, n-1)
	for i := 0; i < n; i++ {
		mine[i] = domain.Pos{Row: i, Col: i}
		if i < n-1 {
			theirs[i] = domain.Pos{Row: i, Col: i + 1}
		}
	}
	return Script{Name: "main diagonal", Moves: interleave(mine, theirs), Expect: domain.Win}
}

// AntiDiagonalWin has the starting player take (i, n-1-i).
func AntiDiagonalWin(n int) Script {
	mine := make([]domain.Pos, n)
	theirs := make([]domain.Pos, n-1)
	for i := 0; i < n; i++ {
		mine[i] = domain.Pos{Row: i, Col: n - 1 - i}
		if i < n-1 {
			theirs[i] = domain.Pos{Row: i, Col: (n - i) % n}
		}
	}
	return Script{Name: "anti diagonal", Moves: interleave(mine, theirs), Expect: domain.Win}
}

// Draw fills the board with a checkerboard whose first row is inverted, which leaves
// every row, column and both diagonals mixed for any n >= 3.
func Draw(n int) Script {
	var ones, zeros []domain.Pos
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			color := (r + c) % 2
			if r == 0 {
				color ^= 1
			}
			if color == 1 {
				ones = append(ones, domain.Pos{Row: r, Col: c})
			} else {
				zeros = append(zeros, domain.Pos{Row: r, Col: c})
			}
		}
	}
	if len(zeros) > len(ones) {
		ones, zeros = zeros, ones
	}
	return Script{Name: "draw", Moves: interleave(ones, zeros), Expect: domain.Draw}
}

// All returns every script for an n x n board.
func All(n int) []Script {
	out := make([]Script, 0, 2*n+3)
	for i := 0; i < n; i++ {
		out = append(out, RowWin(n, i), ColumnWin(n, i))
	}
	return append(out, MainDiagonalWin(n), AntiDiagonalWin(n), Draw(n))
}

func interleave(a, b []domain.Pos) []domain.Pos {
	out := make([]domain.Pos, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}
