package app

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"relapitch/internal/domain"
)

// Session holds one user's mutable progress state: the completion ledger,
// running score, daily quest state, and the current quiz attempt. Every
// read-modify-write runs under the session mutex, so duplicate submissions
// from multiple tabs cannot double-award or tear quest progress.
type Session struct {
	id  string
	rnd *rand.Rand

	mu          sync.RWMutex
	score       int
	completed   map[string]struct{}
	quest       domain.DailyQuestState
	quiz        *domain.QuizAttemptState
	subscribers map[chan domain.ProgressSnapshot]struct{}
}

func newSession(id string) *Session {
	return newSessionWithRand(id, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// newSessionWithRand allows deterministic note and quest draws in tests.
func newSessionWithRand(id string, rnd *rand.Rand) *Session {
	return &Session{
		id:          id,
		rnd:         rnd,
		completed:   make(map[string]struct{}),
		subscribers: make(map[chan domain.ProgressSnapshot]struct{}),
	}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSession(id)
}

// RestoreSession rebuilds a session from a persisted state blob.
func RestoreSession(id string, state domain.SessionState) *Session {
	s := newSession(id)
	s.score = state.Score
	for _, item := range state.Completed {
		s.completed[item] = struct{}{}
	}
	s.quest = state.Quest
	s.quiz = state.Quiz
	return s
}

// ID returns the user key this session belongs to.
func (s *Session) ID() string {
	return s.id
}

// State snapshots the session for persistence.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := make([]string, 0, len(s.completed))
	for item := range s.completed {
		completed = append(completed, item)
	}
	sort.Strings(completed)

	state := domain.SessionState{
		Score:     s.score,
		Completed: completed,
		Quest:     s.quest,
	}
	if s.quiz != nil {
		quiz := *s.quiz
		quiz.Targets = make(map[int]string, len(s.quiz.Targets))
		for n, target := range s.quiz.Targets {
			quiz.Targets[n] = target
		}
		state.Quiz = &quiz
	}
	return state
}

// awardOnceLocked inserts the item into the completion ledger and credits
// the score, unless the item was already rewarded. Returns the points
// actually awarded this time.
func (s *Session) awardOnceLocked(itemID string, points int) int {
	if _, done := s.completed[itemID]; done {
		return 0
	}
	s.completed[itemID] = struct{}{}
	if points > 0 {
		s.score += points
	}
	return points
}

// startQuiz discards any running attempt and begins a fresh one.
func (s *Session) startQuiz(mode domain.Mode, referenceNote string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = &domain.QuizAttemptState{
		Mode:          mode,
		ReferenceNote: referenceNote,
		Targets:       make(map[int]string),
	}
}

// question returns the question tuple for a question number, generating and
// remembering the hidden target note the first time the number is seen.
// Refetching never re-rolls the target, so grading stays deterministic.
func (s *Session) question(number int) (domain.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quiz == nil {
		return domain.QuizQuestion{}, domain.ErrNoQuiz
	}
	if number < 1 {
		return domain.QuizQuestion{}, domain.ErrUnknownQuestion
	}
	if _, ok := s.quiz.Targets[number]; !ok {
		letter := domain.NaturalNotes[s.rnd.Intn(len(domain.NaturalNotes))]
		s.quiz.Targets[number] = letter + domain.DefaultOctave
	}

	q := domain.QuizQuestion{
		Number:        number,
		Mode:          s.quiz.Mode,
		ReferenceNote: s.quiz.ReferenceNote,
	}
	if s.quiz.Mode == domain.ModeListen {
		q.Options = append([]string(nil), domain.NaturalNotes...)
	}
	return q, nil
}

// submitAnswer grades one answer and applies every downstream consequence in
// a single critical section: per-answer award, quest progress, and the quest
// completion reward.
func (s *Session) submitAnswer(today string, quests []domain.QuestDefinition, number int, answer string, answerPoints int) (domain.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quiz == nil {
		return domain.SubmissionResult{}, domain.ErrNoQuiz
	}
	target, ok := s.quiz.Targets[number]
	if !ok {
		return domain.SubmissionResult{}, domain.ErrUnknownQuestion
	}

	// Grading is a pure comparison; the stored target is never touched.
	correctLetter := domain.NoteLetter(target)
	correct := domain.NoteLetter(answer) == correctLetter

	result := domain.SubmissionResult{
		Correct:       correct,
		CorrectLetter: correctLetter,
	}

	mode := s.quiz.Mode
	if correct {
		itemID := fmt.Sprintf("quiz_%s_q%d_correct", mode, number)
		result.PointsAwarded = s.awardOnceLocked(itemID, answerPoints)
	}

	itemType := string(mode) + "_correct"
	if !correct {
		itemType = string(mode) + "_incorrect"
	}
	s.recordQuestEventLocked(today, quests, itemType, correct)

	result.TotalScore = s.score
	result.Quest = s.quest.Status()
	s.broadcastLocked()
	return result, nil
}

// logItem credits a generic achievement (lesson interaction, drag-drop
// exercise, ...) at most once and forwards it to the quest engine. Generic
// items have no correctness concept and count as correct.
func (s *Session) logItem(today string, quests []domain.QuestDefinition, itemID string, points int, itemType string) (domain.ItemResult, error) {
	if itemID == "" {
		return domain.ItemResult{}, domain.ErrMissingItemID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, already := s.completed[itemID]
	awarded := s.awardOnceLocked(itemID, points)
	s.recordQuestEventLocked(today, quests, itemType, true)

	result := domain.ItemResult{
		NewItem:       !already,
		AwardedPoints: awarded,
		TotalScore:    s.score,
		Quest:         s.quest.Status(),
	}
	s.broadcastLocked()
	return result, nil
}

// recordQuestEventLocked refreshes the daily assignment and advances quest
// progress. Completing the quest pays its reward through the same ledger as
// every other achievement; the item id embeds the date so tomorrow's
// instance of the same quest can pay again.
func (s *Session) recordQuestEventLocked(today string, quests []domain.QuestDefinition, itemType string, correct bool) {
	s.quest = ensureDailyQuest(s.quest, quests, today, s.rnd)
	next, completedNow := applyQuestEvent(s.quest, itemType, correct)
	s.quest = next
	if completedNow && s.quest.Quest != nil {
		itemID := fmt.Sprintf("daily_quest_done_%s_%s", s.quest.Quest.ID, s.quest.AssignedDate)
		s.awardOnceLocked(itemID, s.quest.Quest.RewardPoints)
	}
}

// progress refreshes the daily assignment and returns the display snapshot.
func (s *Session) progress(today string, quests []domain.QuestDefinition) domain.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quest = ensureDailyQuest(s.quest, quests, today, s.rnd)
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.ProgressSnapshot {
	return domain.ProgressSnapshot{
		TotalScore: s.score,
		Quest:      s.quest.Status(),
	}
}

func (s *Session) subscribe() (<-chan domain.ProgressSnapshot, func()) {
	ch := make(chan domain.ProgressSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snapshot := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale update so a slow widget cannot block the request.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
