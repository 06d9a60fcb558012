// Copyright 2026 The contextgate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patterns

// DefaultDefinitions returns the built-in registry, evaluated in order.
// First match wins, so the cheapest and most specific patterns come
// first. A fresh slice is returned each call; callers may append freely.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			ID:          "pure_greeting",
			Regex:       `^(hi|hello|hey|yo|howdy|good (morning|afternoon|evening))[!. ]*$`,
			Response:    "Hello! I'm ready to help with your code. What are you working on?",
			Tokens:      50,
			QueryType:   "SIMPLE",
			PatternType: TypeGreeting,
		},
		{
			ID:          "gratitude",
			Regex:       `^(thanks|thank you|thx|ty|cheers|appreciate it)[!. ]*$`,
			Response:    "You're welcome! Let me know if anything else comes up.",
			Tokens:      25,
			QueryType:   "SIMPLE",
			PatternType: TypeGratitude,
		},
		{
			ID:          "farewell",
			Regex:       `^(bye|goodbye|see you|later|good night)[!. ]*$`,
			Response:    "Goodbye! Happy coding.",
			Tokens:      20,
			QueryType:   "SIMPLE",
			PatternType: TypeFarewell,
		},
		{
			ID:          "acknowledgment",
			Regex:       `^(ok|okay|got it|sounds good|cool|nice|great|perfect|awesome)[!. ]*$`,
			Response:    "Great! I'm here if you need anything else.",
			Tokens:      20,
			QueryType:   "SIMPLE",
			PatternType: TypeAcknowledgment,
		},
		{
			ID:          "affirmation",
			Regex:       `^(yes|yeah|yep|sure|no|nope|nah)[!. ]*$`,
			Response:    "Understood. What would you like to do next?",
			Tokens:      20,
			QueryType:   "SIMPLE",
			PatternType: TypeConfirmation,
		},
		{
			ID:          "how_are_you",
			Regex:       `^(how are you|how's it going|what's up|sup)\??[!. ]*$`,
			Response:    "Doing well and ready to dig into code. What can I help with?",
			Tokens:      30,
			QueryType:   "SIMPLE",
			PatternType: TypeSmallTalk,
		},
		{
			ID:          "capability_query",
			Regex:       `^(what can you do|help|what do you do)\??[!. ]*$`,
			Response:    "I can help you write, debug, and refactor code, explain errors, and answer questions about your project. Paste some code or describe the problem to get started.",
			Tokens:      60,
			QueryType:   "SIMPLE",
			PatternType: TypeCapabilityQuery,
			// A bare "help" after real conversation usually refers to the
			// ongoing task, not capabilities.
			Condition: "HistoryLen == 0",
		},
	}
}
