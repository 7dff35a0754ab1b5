package uow

import "errors"

// Ошибки реестра репозиториев. Возвращаются из Register и Get-методов,
// сигнализируют об ошибке конфигурации приложения, а не рантайма.
var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
)
