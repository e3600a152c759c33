package parser

import (
	"testing"

	"github.com/nathoo/taleweaver/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Intent{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Intent{},
		},

		// Basic verbs
		{
			name:  "look",
			input: "look",
			want:  types.Intent{Verb: "look"},
		},
		{
			name:  "continue",
			input: "continue",
			want:  types.Intent{Verb: "continue"},
		},
		{
			name:  "wait with hours",
			input: "wait 3",
			want:  types.Intent{Verb: "wait", Object: "3"},
		},

		// Verb aliases
		{
			name:  "c → continue",
			input: "c",
			want:  types.Intent{Verb: "continue"},
		},
		{
			name:  "i → inventory",
			input: "i",
			want:  types.Intent{Verb: "inventory"},
		},
		{
			name:  "CHAT innkeeper → talk",
			input: "CHAT innkeeper",
			want:  types.Intent{Verb: "talk", Object: "innkeeper"},
		},
		{
			name:  "walk market → go",
			input: "walk market",
			want:  types.Intent{Verb: "go", Object: "market"},
		},

		// Multi-word verbs
		{
			name:  "talk to the mayor",
			input: "talk to the mayor",
			want:  types.Intent{Verb: "talk", Object: "mayor"},
		},
		{
			name:  "go to town_square keeps case",
			input: "go to Town_Square",
			want:  types.Intent{Verb: "go", Object: "Town_Square"},
		},
		{
			name:  "choose option 2",
			input: "choose option 2",
			want:  types.Intent{Verb: "choose", Object: "2"},
		},

		// Prepositions
		{
			name:  "use key on door",
			input: "use the key on the door",
			want:  types.Intent{Verb: "use", Object: "key", Target: "door"},
		},
		{
			name:  "ask mayor about mill",
			input: "ask mayor about mill",
			want:  types.Intent{Verb: "talk", Object: "mayor", Target: "mill"},
		},

		// Choices
		{
			name:  "bare number",
			input: "2",
			want:  types.Intent{Verb: "choose", Object: "2"},
		},
		{
			name:  "choose by id",
			input: "choose ask_mill",
			want:  types.Intent{Verb: "choose", Object: "ask_mill"},
		},

		// Triggers
		{
			name:  "trigger name verbatim",
			input: "trigger <<On Player Enter>>",
			want:  types.Intent{Verb: "trigger", Object: "<<On Player Enter>>"},
		},
		{
			name:  "trigger with entity",
			input: "trigger Ring The Bell object:bell",
			want:  types.Intent{Verb: "trigger", Object: "Ring The Bell", Target: "object:bell"},
		},
		{
			name:  "trigger single word with colon is the name",
			input: "trigger scene:intro",
			want:  types.Intent{Verb: "trigger", Object: "scene:intro"},
		},

		// Unknown verbs pass through
		{
			name:  "unknown verb",
			input: "dance wildly",
			want:  types.Intent{Verb: "dance", Object: "wildly"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
