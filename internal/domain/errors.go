package domain

import "errors"

var (
	// ErrInvalidMode is returned when a quiz is started with an unknown mode.
	ErrInvalidMode = errors.New("invalid quiz mode")
	// ErrNoQuiz is returned when a question is fetched or graded before any quiz was started.
	ErrNoQuiz = errors.New("no quiz in progress")
	// ErrUnknownQuestion is returned when grading a question number that was never issued.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrMissingItemID indicates a progress log request without an item id.
	ErrMissingItemID = errors.New("missing item id")
	// ErrLessonNotFound indicates the requested lesson does not exist in the catalog.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrCatalogUnavailable indicates the content catalog could not be loaded.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)
