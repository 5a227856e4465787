// SPDX-License-Identifier: MPL-2.0

package events

//modular:marker
type OnStart struct{} // want OnStart:"modular marker"

// NotMarker is an ordinary type.
type NotMarker struct{}
