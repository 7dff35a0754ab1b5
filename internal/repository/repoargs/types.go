// Package repoargs содержит имена репозиториев и типизированные аргументы их методов.
// Вынесены в отдельный пакет чтобы не плодить циклические импорты между
// сервисным слоем и реализациями репозиториев.
package repoargs

type RepositoryName string

const (
	UserRepoName      RepositoryName = "user"
	BookRepoName      RepositoryName = "book"
	BorrowingRepoName RepositoryName = "borrowing"
	PaymentRepoName   RepositoryName = "payment"
)
