// Package dispatch is an in-process event dispatcher. Listeners declare the
// event kinds they handle and report a boolean outcome for every event; the
// dispatcher combines those outcomes according to the chosen strategy.
//
// # Kinds
//
// The kind of an event is its dynamic Go type. Listeners name the kinds they
// want through Kinds, usually with KindFor:
//
//	type Login struct{ User string }
//
//	type audit struct{}
//
//	func (*audit) Kinds() []dispatch.Kind { return []dispatch.Kind{dispatch.KindFor[Login]()} }
//	func (*audit) OnEvent(e dispatch.Event) bool { ...; return true }
//
// On wraps a typed function instead:
//
//	d.AddListener(dispatch.On(func(l Login) bool { return l.User != "" }))
//
// # Strategies
//
//	ExecuteFullEIT     any true wins, every listener runs        (none: false)
//	ExecuteFullEIF     any false wins, every listener runs       (none: true)
//	ExecuteArithmetic  trues >= listeners/2                      (none: true)
//	ExecuteShortEIT    stop at the first true                    (none: false)
//	ExecuteShortEIF    stop at the first false                   (none: true)
//	ExecuteAsync       one background task, listeners in order
//	ExecuteParallel    one background task per listener
//
// The order in which listeners of the same kind run is not specified.
//
// Background tasks are bounded by WithMaxInFlight. Their handles stay visible
// through InFlight until the next ExecuteAsync or ExecuteParallel reaps the
// finished ones.
package dispatch
