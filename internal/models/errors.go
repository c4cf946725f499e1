package models

import "errors"

var (
	// ErrUnauthorized токен отсутствует, поврежден, просрочен или не прошел проверку подписи.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound у пользователя нет ни одного сохраненного объекта.
	ErrNotFound = errors.New("no files found")
	// ErrInvalidRequest поля запроса не удалось разобрать.
	ErrInvalidRequest = errors.New("invalid request")
)
