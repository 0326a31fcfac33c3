// Copyright (c) 2023 BVK Chaitanya

package api

// EventsPath serves a websocket stream of engine events. Each event is
// sent as one JSON-encoded gobs.EngineEvent message.
const EventsPath = "/events"
