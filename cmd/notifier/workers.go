package main

import "context"

type runner interface {
	Run(ctx context.Context)
}

// runWorkers runs the scheduler until ctx is cancelled and keeps the
// publisher consuming until the scheduler has returned, so outcomes of the
// run in flight at shutdown still reach the sink. It blocks until both stop.
func runWorkers(ctx context.Context, scheduler, publisher runner) {
	pubCtx, stopPublisher := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPublisher()

	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		publisher.Run(pubCtx)
	}()

	scheduler.Run(ctx)

	stopPublisher()
	<-publisherDone
}
