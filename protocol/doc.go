// Package protocol defines the message vocabulary exchanged between the
// Controller and the render engine.
//
// Both directions are closed sets: Command (Controller -> Engine) and Event
// (Engine -> Controller) can only be implemented by the types declared here,
// so a type switch over them is exhaustive and unknown kinds are rejected at
// decode time rather than silently ignored.
//
// On the wire every message is a flat JSON object tagged by "type":
//
//	{"type":"init","surface":{"width":800,"height":600}}
//	{"type":"key_event","key":"ArrowUp","action":"down"}
//	{"type":"fps","fps":60}
package protocol
