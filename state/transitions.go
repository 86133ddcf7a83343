package state

import "github.com/MichaelMishaev/assitentWAbot-sub006/domain"

// allowedTransitions enumerates the legal next states for each
// ConversationState, per spec.md §4.2's flow diagrams. Every state
// may additionally transition to itself (e.g. re-prompting after an
// invalid PIN) and to MAIN_MENU (cancel/reset), which isTransitionAllowed
// checks before consulting this table.
var allowedTransitions = map[domain.ConversationState][]domain.ConversationState{
	domain.StateUnauthenticated: {
		domain.StateRegisteringName,
		domain.StateAwaitingPIN,
	},
	domain.StateRegisteringName: {
		domain.StateRegisteringPIN,
	},
	domain.StateRegisteringPIN: {
		domain.StateMainMenu,
	},
	domain.StateAwaitingPIN: {
		domain.StateMainMenu,
		domain.StateUnauthenticated,
	},

	domain.StateMainMenu: {
		domain.StateAddingEventTitle,
		domain.StateAddingReminderTitle,
		domain.StateDeletingEventSelect,
		domain.StateUpdatingEventSelect,
		domain.StateAddingTaskTitle,
		domain.StateClarifyingIntent,
	},

	domain.StateAddingEventTitle:           {domain.StateAddingEventDate},
	domain.StateAddingEventDate:            {domain.StateAddingEventTime, domain.StateAddingEventLocation, domain.StateAddingEventConfirm},
	domain.StateAddingEventTime:            {domain.StateAddingEventLocation, domain.StateAddingEventConfirm},
	domain.StateAddingEventLocation:        {domain.StateAddingEventConfirm},
	domain.StateAddingEventConfirm:         {domain.StateAddingEventConflictConfirm},
	domain.StateAddingEventConflictConfirm: {},

	domain.StateAddingReminderTitle:      {domain.StateAddingReminderDate},
	domain.StateAddingReminderDate:       {domain.StateAddingReminderRecurrence, domain.StateAddingReminderConfirm},
	domain.StateAddingReminderRecurrence: {domain.StateAddingReminderConfirm},
	domain.StateAddingReminderConfirm:    {},

	domain.StateDeletingEventSelect:  {domain.StateDeletingEventConfirm},
	domain.StateDeletingEventConfirm: {},

	domain.StateUpdatingEventSelect: {domain.StateUpdatingEventField},
	domain.StateUpdatingEventField:  {domain.StateUpdatingEventValue},
	domain.StateUpdatingEventValue:  {},

	domain.StateAddingTaskTitle:    {domain.StateAddingTaskDetails, domain.StateAddingTaskPriority},
	domain.StateAddingTaskDetails:  {domain.StateAddingTaskPriority},
	domain.StateAddingTaskPriority: {domain.StateAddingTaskDue, domain.StateAddingTaskConfirm},
	domain.StateAddingTaskDue:      {domain.StateAddingTaskConfirm},
	domain.StateAddingTaskConfirm:  {},

	domain.StateClarifyingIntent: {},
}

// isTransitionAllowed reports whether moving from `from` to `to` is a
// legal step in the conversation flow graph. Every state may
// transition to itself (re-prompt) or to MAIN_MENU (cancel/reset),
// regardless of the table above.
func isTransitionAllowed(from, to domain.ConversationState) bool {
	if to == from || to == domain.StateMainMenu {
		return true
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
