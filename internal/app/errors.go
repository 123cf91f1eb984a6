package app

import "errors"

var (
	ErrEmptyTitle        = errors.New("title is required")
	ErrInvalidEntryStage = errors.New("stage is not a pipeline entry point")
	ErrUnknownStage      = errors.New("unknown stage")
	ErrUnknownRole       = errors.New("unknown role")
	ErrInvalidChapter    = errors.New("chapter must name exactly one chapter")
)
