package props

// Subscriber handles refresher event subscriptions.
type Subscriber struct {
	done             chan struct{}
	startedHandler   func(RefreshStarted)
	completedHandler func(RefreshCompleted)
	errorHandler     func(RefreshError)
	shutdownHandler  func(RefreshShutdown)
}

// OnRefreshStarted sets the handler for RefreshStarted events
func OnRefreshStarted(fn func(RefreshStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.startedHandler = fn }
}

// OnRefreshCompleted sets the handler for RefreshCompleted events
func OnRefreshCompleted(fn func(RefreshCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.completedHandler = fn }
}

// OnRefreshError sets the handler for RefreshError events
func OnRefreshError(fn func(RefreshError)) func(*Subscriber) {
	return func(s *Subscriber) { s.errorHandler = fn }
}

// OnRefreshShutdown sets the handler for RefreshShutdown events
func OnRefreshShutdown(fn func(RefreshShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.shutdownHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the
// dispatch loop. Returns a closer function that waits until every event has
// been handled; use `defer closer()` right after creating the subscriber.
//
// The subscriber processes events until the events channel closes, then the
// closer confirms all processing is complete.
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:             make(chan struct{}),
		startedHandler:   func(RefreshStarted) {},   // nop by default
		completedHandler: func(RefreshCompleted) {}, // nop by default
		errorHandler:     func(RefreshError) {},     // nop by default
		shutdownHandler:  func(RefreshShutdown) {},  // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case RefreshStarted:
				s.startedHandler(e)
			case RefreshCompleted:
				s.completedHandler(e)
			case RefreshError:
				s.errorHandler(e)
			case RefreshShutdown:
				s.shutdownHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
