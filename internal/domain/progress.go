package domain

import (
	"encoding/json"
	"fmt"
)

// QuestProgress is a tagged variant with one case per QuestKind, so a
// progress value can never disagree with its quest's shape. New cases must
// also be handled in encodeProgress/decodeProgress.
type QuestProgress interface {
	// Value is the numeric progress shown to the user.
	Value() int
	// Done reports whether the goal has been reached.
	Done(goal int) bool

	sealedProgress()
}

// CountProgress counts matching events toward a CountGoal quest.
type CountProgress struct {
	Count int
}

func (p CountProgress) Value() int { return p.Count }
func (p CountProgress) Done(goal int) bool { return p.Count >= goal }
func (CountProgress) sealedProgress() {}

// StreakProgress counts consecutive correct answers; a miss resets it.
type StreakProgress struct {
	Streak int
}

func (p StreakProgress) Value() int { return p.Streak }
func (p StreakProgress) Done(goal int) bool { return p.Streak >= goal }
func (StreakProgress) sealedProgress() {}

// CombinedProgress tracks one correct listen and one correct sing exercise.
type CombinedProgress struct {
	ListenDone bool
	SingDone   bool
}

func (p CombinedProgress) Value() int {
	n := 0
	if p.ListenDone {
		n++
	}
	if p.SingDone {
		n++
	}
	return n
}
func (p CombinedProgress) Done(int) bool { return p.ListenDone && p.SingDone }
func (CombinedProgress) sealedProgress() {}

// ZeroProgress returns the starting progress value for a quest kind.
func ZeroProgress(kind QuestKind) QuestProgress {
	switch kind {
	case QuestListenStreak:
		return StreakProgress{}
	case QuestCombinedPractice:
		return CombinedProgress{}
	default:
		return CountProgress{}
	}
}

// DailyQuestState is one user's quest assignment for a calendar day.
// A nil Quest means nothing is assigned yet (or the catalog was empty).
type DailyQuestState struct {
	AssignedDate   string
	Quest          *QuestDefinition
	Progress       QuestProgress
	CompletedToday bool
}

// Status renders the state for display. An unassigned state degrades to an
// empty snapshot rather than failing.
func (s DailyQuestState) Status() QuestStatus {
	if s.Quest == nil {
		return QuestStatus{}
	}
	st := QuestStatus{
		Description: s.Quest.Description,
		Goal:        s.Quest.Goal,
		Completed:   s.CompletedToday,
	}
	if s.Progress != nil {
		st.Progress = s.Progress.Value()
	}
	if s.CompletedToday {
		st.RewardPoints = s.Quest.RewardPoints
	}
	return st
}

type dailyQuestStateJSON struct {
	AssignedDate string           `json:"assigned_date,omitempty"`
	Quest        *QuestDefinition `json:"quest,omitempty"`
	Progress     *progressJSON    `json:"progress,omitempty"`
	Completed    bool             `json:"completed_today,omitempty"`
}

type progressJSON struct {
	Kind       string `json:"kind"`
	Count      int    `json:"count,omitempty"`
	ListenDone bool   `json:"listen_done,omitempty"`
	SingDone   bool   `json:"sing_done,omitempty"`
}

func encodeProgress(p QuestProgress) *progressJSON {
	switch v := p.(type) {
	case CountProgress:
		return &progressJSON{Kind: "count", Count: v.Count}
	case StreakProgress:
		return &progressJSON{Kind: "streak", Count: v.Streak}
	case CombinedProgress:
		return &progressJSON{Kind: "combined", ListenDone: v.ListenDone, SingDone: v.SingDone}
	default:
		return nil
	}
}

func decodeProgress(p *progressJSON) (QuestProgress, error) {
	if p == nil {
		return nil, nil
	}
	switch p.Kind {
	case "count":
		return CountProgress{Count: p.Count}, nil
	case "streak":
		return StreakProgress{Streak: p.Count}, nil
	case "combined":
		return CombinedProgress{ListenDone: p.ListenDone, SingDone: p.SingDone}, nil
	default:
		return nil, fmt.Errorf("unknown progress kind %q", p.Kind)
	}
}

// MarshalJSON flattens the progress variant into a tagged envelope so the
// state survives a round trip through the session store.
func (s DailyQuestState) MarshalJSON() ([]byte, error) {
	return json.Marshal(dailyQuestStateJSON{
		AssignedDate: s.AssignedDate,
		Quest:        s.Quest,
		Progress:     encodeProgress(s.Progress),
		Completed:    s.CompletedToday,
	})
}

func (s *DailyQuestState) UnmarshalJSON(data []byte) error {
	var aux dailyQuestStateJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	progress, err := decodeProgress(aux.Progress)
	if err != nil {
		return err
	}
	s.AssignedDate = aux.AssignedDate
	s.Quest = aux.Quest
	s.Progress = progress
	s.CompletedToday = aux.Completed
	return nil
}

// QuizAttemptState is the serializable form of one running quiz: the chosen
// mode and reference note plus the hidden target generated for each question
// number fetched so far.
type QuizAttemptState struct {
	Mode          Mode           `json:"mode"`
	ReferenceNote string         `json:"reference_note"`
	Targets       map[int]string `json:"targets"`
}

// SessionState is the opaque per-user blob handed to the session store. It
// carries everything the engine needs between requests.
type SessionState struct {
	Score     int               `json:"score"`
	Completed []string          `json:"completed,omitempty"`
	Quest     DailyQuestState   `json:"quest"`
	Quiz      *QuizAttemptState `json:"quiz,omitempty"`
}
