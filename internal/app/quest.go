package app

import (
	"math/rand"

	"relapitch/internal/domain"
)

// ensureDailyQuest returns the quest state that should be in effect for
// today. If nothing is assigned yet, or the assignment is from an earlier
// day, a quest is drawn uniformly from the catalog and progress starts from
// zero. Calling it again on the same day changes nothing, so racing requests
// can both pass through it safely under the session lock.
func ensureDailyQuest(state domain.DailyQuestState, quests []domain.QuestDefinition, today string, rnd *rand.Rand) domain.DailyQuestState {
	if state.Quest != nil && state.AssignedDate == today {
		return state
	}
	if len(quests) == 0 {
		return domain.DailyQuestState{AssignedDate: today}
	}
	quest := quests[rnd.Intn(len(quests))]
	return domain.DailyQuestState{
		AssignedDate: today,
		Quest:        &quest,
		Progress:     domain.ZeroProgress(quest.Kind),
	}
}

// eventChannel normalizes an item type into the practice channel the quest
// engine dispatches on. Incorrect-suffixed types force correct to false so
// both the "listen_correct + false" and "listen_incorrect" spellings of a
// miss reset a streak.
func eventChannel(itemType string, correct bool) (channel string, isCorrect bool, ok bool) {
	switch itemType {
	case domain.ItemListenCorrect:
		return "listen", correct, true
	case domain.ItemListenIncorrect:
		return "listen", false, true
	case domain.ItemSingCorrect:
		return "sing", correct, true
	case domain.ItemSingIncorrect:
		return "sing", false, true
	case domain.ItemLessonInteraction:
		return "lesson", true, true
	}
	return "", false, false
}

// applyQuestEvent advances quest progress for one graded event and reports
// whether this event completed the quest. Completed or unassigned quests
// ignore events entirely.
func applyQuestEvent(state domain.DailyQuestState, itemType string, correct bool) (domain.DailyQuestState, bool) {
	if state.Quest == nil || state.CompletedToday {
		return state, false
	}
	channel, isCorrect, ok := eventChannel(itemType, correct)
	if !ok {
		return state, false
	}

	switch progress := state.Progress.(type) {
	case domain.CountProgress:
		switch {
		case state.Quest.Kind == domain.QuestListenCount && channel == "listen" && isCorrect,
			state.Quest.Kind == domain.QuestSingCount && channel == "sing" && isCorrect,
			state.Quest.Kind == domain.QuestLessonCount && channel == "lesson":
			progress.Count++
			state.Progress = progress
		}
	case domain.StreakProgress:
		if channel == "listen" {
			if isCorrect {
				progress.Streak++
			} else {
				progress.Streak = 0
			}
			state.Progress = progress
		}
	case domain.CombinedProgress:
		if channel == "listen" && isCorrect {
			progress.ListenDone = true
			state.Progress = progress
		}
		if channel == "sing" && isCorrect {
			progress.SingDone = true
			state.Progress = progress
		}
	}

	if state.Progress != nil && state.Progress.Done(state.Quest.Goal) {
		state.CompletedToday = true
		return state, true
	}
	return state, false
}
