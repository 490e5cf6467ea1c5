package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound - сущность не существует или не принадлежит вызывающему
	ErrNotFound = errors.New("not found")

	// ErrForbidden - у вызывающего нет нужной роли или владения
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState - операция недопустима для текущего статуса
	ErrInvalidState = errors.New("invalid state")

	// ErrIllegalTransition - нарушен порядок статусов
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidCategory - слаги категорий отходов не найдены
	ErrInvalidCategory = errors.New("invalid waste category")

	// ErrSelfPurchase - покупатель совпадает с продавцом
	ErrSelfPurchase = errors.New("cannot purchase own listing")

	// ErrConflict - изменение замороженной (проданной) сущности
	ErrConflict = errors.New("conflict")

	// ErrValidation - некорректные входные данные
	ErrValidation = errors.New("validation failed")
)

// TransitionError описывает отклоненный переход статуса
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move %s from '%s' to '%s'", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// StateError описывает операцию, недопустимую в текущем статусе
type StateError struct {
	Entity    string
	Operation string
	Current   string
	Required  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s in status '%s': only '%s' is allowed",
		e.Operation, e.Entity, e.Current, e.Required)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// InvalidCategoryError перечисляет ненайденные слаги
type InvalidCategoryError struct {
	Missing []string
}

func (e *InvalidCategoryError) Error() string {
	return "waste categories not found: " + strings.Join(e.Missing, ", ")
}

func (e *InvalidCategoryError) Unwrap() error {
	return ErrInvalidCategory
}

// validationError оборачивает сообщение в ErrValidation
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
