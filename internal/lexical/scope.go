package lexical

import "github.com/cosmiclasagnadev/zmem/internal/memory"

func scopeOf(s string) memory.Scope {
	return memory.Scope(s)
}
