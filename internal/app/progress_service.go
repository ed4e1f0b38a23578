package app

import (
	"context"
	"fmt"
	"time"

	"relapitch/internal/domain"
)

// SessionRepository abstracts how per-user progress sessions are stored
// (in-memory, Redis, etc). GetOrCreate may hydrate a session from a
// persisted snapshot; Save persists the current snapshot.
type SessionRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*Session, error)
	Get(ctx context.Context, userID string) (*Session, bool)
	Save(ctx context.Context, session *Session) error
}

// CatalogRepository loads lesson and quest content (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// ProgressService is the façade the transport layer talks to. It routes each
// request to the user's session and persists the outcome.
type ProgressService struct {
	sessions     SessionRepository
	catalog      CatalogRepository
	answerPoints int
	now          func() time.Time
	loc          *time.Location
}

// DefaultAnswerPoints matches what the quiz UI promises for a correct answer.
const DefaultAnswerPoints = 15

func NewProgressService(sessions SessionRepository, catalog CatalogRepository, answerPoints int) *ProgressService {
	return NewProgressServiceWithClock(sessions, catalog, answerPoints, time.Now, time.UTC)
}

// NewProgressServiceWithClock is test-only for deterministic day boundaries.
func NewProgressServiceWithClock(sessions SessionRepository, catalog CatalogRepository, answerPoints int, now func() time.Time, loc *time.Location) *ProgressService {
	if answerPoints <= 0 {
		answerPoints = DefaultAnswerPoints
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressService{
		sessions:     sessions,
		catalog:      catalog,
		answerPoints: answerPoints,
		now:          now,
		loc:          loc,
	}
}

// today is the calendar date the quest engine keys assignments on.
func (s *ProgressService) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

func (s *ProgressService) loadCatalog(ctx context.Context) (domain.Catalog, error) {
	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return catalog, nil
}

// Lesson looks up one lesson document.
func (s *ProgressService) Lesson(ctx context.Context, id int) (domain.Lesson, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.Lesson{}, err
	}
	lesson, ok := catalog.Lessons[id]
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return lesson, nil
}

// StartQuiz begins a fresh quiz attempt, discarding any previous one.
func (s *ProgressService) StartQuiz(ctx context.Context, userID string, mode domain.Mode, referenceNote string) error {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return err
	}
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	session.startQuiz(mode, referenceNote)
	// Persistence is best-effort; the live session stays authoritative.
	_ = s.sessions.Save(ctx, session)
	return nil
}

// Question fetches (or generates once) the question for a question number.
func (s *ProgressService) Question(ctx context.Context, userID string, number int) (domain.QuizQuestion, error) {
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	question, err := session.question(number)
	if err != nil {
		return domain.QuizQuestion{}, err
	}
	_ = s.sessions.Save(ctx, session)
	return question, nil
}

// SubmitAnswer grades an answer, credits points at most once per question,
// and advances the daily quest.
func (s *ProgressService) SubmitAnswer(ctx context.Context, userID string, number int, answer string) (domain.SubmissionResult, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	result, err := session.submitAnswer(s.today(), catalog.Quests, number, answer, s.answerPoints)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	_ = s.sessions.Save(ctx, session)
	return result, nil
}

// LogItem credits a generic achievement at most once and advances the quest.
func (s *ProgressService) LogItem(ctx context.Context, userID, itemID string, points int, itemType string) (domain.ItemResult, error) {
	if itemID == "" {
		return domain.ItemResult{}, domain.ErrMissingItemID
	}
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.ItemResult{}, err
	}
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.ItemResult{}, err
	}
	result, err := session.logItem(s.today(), catalog.Quests, itemID, points, itemType)
	if err != nil {
		return domain.ItemResult{}, err
	}
	_ = s.sessions.Save(ctx, session)
	return result, nil
}

// Progress ensures today's quest is assigned and returns the unified snapshot.
func (s *ProgressService) Progress(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	snapshot := session.progress(s.today(), catalog.Quests)
	_ = s.sessions.Save(ctx, session)
	return snapshot, nil
}

// Subscribe returns a channel that receives progress snapshots whenever the
// user's session changes. The caller must invoke the cancel function.
func (s *ProgressService) Subscribe(ctx context.Context, userID string) (<-chan domain.ProgressSnapshot, func(), error) {
	session, err := s.sessions.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}
