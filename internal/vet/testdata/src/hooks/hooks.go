// SPDX-License-Identifier: MPL-2.0

package hooks

import "events"

var _ events.OnStart

type Server struct{}

var Instance = &Server{}

//modular:on events.OnStart
func (s *Server) Start() {}

type Worker struct{}

type WorkerCompanion struct{}

//modular:on events.OnStart
func (WorkerCompanion) Spawn() {}

//modular:on events.OnStart
func Setup() {}

type Conn struct{}

//modular:on events.OnStart
func (c *Conn) Open() {} // want `hooks.Conn.Open is never dispatched: instance methods are not supported`

//modular:on events.OnStart
func Generic[T any](v T) {} // want `hooks.Generic is never dispatched: generic functions cannot be dispatched`

//modular:on events.NotMarker
func Wrong() {} // want `events.NotMarker is not a marker type`

//modular:on events.Missing
func Gone() {} // want `unknown marker events.Missing`

//modular:marker
type Local struct{} // want Local:"modular marker"

//modular:on Local
func UsesLocal() {}

//modular:on Server
func UsesServer() {} // want `hooks.Server is not a marker type`

//modular:listen events.OnStart // want `unknown directive`
func Bad() {}
