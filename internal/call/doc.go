// Package call keeps the lifecycle of the current user's audio/video call.
//
// The Controller holds at most one current Session plus one held incoming
// call. It is driven by local commands (StartCall, Answer, Reject, End) and by
// events pushed on the user's private channel (HandleEvent):
//
//	none --StartCall--> pending(outgoing) --call-answered--> active --End/call-ended--> none
//	none --call-initiated--> pending(incoming) --Answer--> active
//	pending --Reject/call-rejected--> rejected --display window--> none
//	pending --call-ended--> cancelled --display window--> none
//
// Events for a call id other than the current one are never applied to it,
// older revisions of the current call are dropped, and late events for calls
// that already finished are ignored. Transport and auth failures never change
// the state.
package call
