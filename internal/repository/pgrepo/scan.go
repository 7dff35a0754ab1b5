package pgrepo

// rowScanner покрывает pgx.Row и pgx.Rows, чтобы scan-хелперы работали и с единичной
// строкой и с курсором выборки.
type rowScanner interface {
	Scan(dest ...any) error
}
