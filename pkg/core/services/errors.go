package services

import (
	"time"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// ValidationError is returned for missing or malformed input, before the store is touched
type ValidationError = model.ValidationError

// now is swapped in tests
var now = time.Now
