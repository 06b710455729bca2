package domain

import "context"

// LegacyTranslator resolves tool names from the older naming scheme.
// TranslateAndExecute returns (nil, nil) when name is not a legacy tool;
// any non-nil result is wrapped into the standard envelope by the router.
type LegacyTranslator interface {
	TranslateAndExecute(ctx context.Context, name string, params map[string]any, callerID int64) (map[string]any, error)
}
