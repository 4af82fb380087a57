// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recording

import (
	"fmt"
	"runtime"
)

// UnavailableNative is the native backend slot for platforms without an OS
// capture integration. Every attempt fails with ErrCapabilityUnavailable, so a
// session that prefers native capture takes the capability retry onto the
// fallback backend.
func UnavailableNative() BackendFactory {
	return func(BackendEvents) (Backend, error) {
		return nil, fmt.Errorf("%w: no native capture backend on %s/%s",
			ErrCapabilityUnavailable, runtime.GOOS, runtime.GOARCH)
	}
}
