package domain

// Lesson is a read-only content document served to the lesson pages.
type Lesson struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Keyboard bool   `json:"keyboard"`
}

// QuestKind tags the shape of a quest's progress tracking.
type QuestKind string

const (
	QuestListenCount      QuestKind = "listen_count"
	QuestSingCount        QuestKind = "sing_count"
	QuestLessonCount      QuestKind = "lesson_count"
	QuestListenStreak     QuestKind = "listen_streak"
	QuestCombinedPractice QuestKind = "combined_practice"
)

// QuestDefinition is an immutable catalog entry for one daily quest.
type QuestDefinition struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Kind         QuestKind `json:"kind"`
	Goal         int       `json:"goal"`
	RewardPoints int       `json:"reward_points"`
}

// Catalog bundles the read-only content served by the application: lesson
// documents and the pool of daily quest definitions. The engine never
// mutates it.
type Catalog struct {
	Lessons map[int]Lesson    `json:"lessons"`
	Quests  []QuestDefinition `json:"quests"`
}

// Mode selects the quiz exercise style.
type Mode string

const (
	ModeListen Mode = "listen"
	ModeSing   Mode = "sing"
)

// ParseMode validates a caller-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeListen, ModeSing:
		return Mode(s), nil
	}
	return "", ErrInvalidMode
}

// Item types recognized by the daily quest engine.
const (
	ItemListenCorrect     = "listen_correct"
	ItemListenIncorrect   = "listen_incorrect"
	ItemSingCorrect       = "sing_correct"
	ItemSingIncorrect     = "sing_incorrect"
	ItemLessonInteraction = "lesson_interaction"
)

// QuizQuestion is what the transport layer gets when a question is fetched.
// The hidden target note is never part of it.
type QuizQuestion struct {
	Number        int      `json:"question_number"`
	Mode          Mode     `json:"mode"`
	ReferenceNote string   `json:"reference_note"`
	Options       []string `json:"options,omitempty"`
}

// QuestStatus is the display snapshot of the current daily quest, matching
// the daily_quest_update object consumed by the score widget.
type QuestStatus struct {
	Description  string `json:"quest_description"`
	Progress     int    `json:"quest_progress"`
	Goal         int    `json:"quest_goal"`
	Completed    bool   `json:"quest_completed"`
	RewardPoints int    `json:"quest_reward_points,omitempty"`
}

// SubmissionResult is the outcome of grading one quiz answer.
type SubmissionResult struct {
	Correct       bool        `json:"is_correct"`
	CorrectLetter string      `json:"correct_answer"`
	PointsAwarded int         `json:"points_awarded"`
	TotalScore    int         `json:"total_score"`
	Quest         QuestStatus `json:"daily_quest_update"`
}

// ItemResult is the outcome of logging a generic rewardable item.
type ItemResult struct {
	NewItem       bool        `json:"-"`
	AwardedPoints int         `json:"awarded_item_points"`
	TotalScore    int         `json:"new_score"`
	Quest         QuestStatus `json:"daily_quest_update"`
}

// ProgressSnapshot is the unified per-user view: running score plus the
// daily quest state.
type ProgressSnapshot struct {
	TotalScore int         `json:"total_score"`
	Quest      QuestStatus `json:"daily_quest_update"`
}
