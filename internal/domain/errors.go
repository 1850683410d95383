package domain

import "errors"

// Виды ошибок ядра. Хранилища и композер лент оборачивают их через
// fmt.Errorf("...: %w", ...), поэтому вызывающая сторона различает вид
// через errors.Is, а текст остается конкретным.
var (
	// ErrNotFound - пользователь или пост по ссылке не существует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput - содержимое слишком длинное или не хватает ссылки на оригинал.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidOperation - операция запрещена (подписка на самого себя).
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrRateLimited - достигнут дневной лимит публикаций.
	ErrRateLimited = errors.New("rate limited")
)
