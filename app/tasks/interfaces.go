package tasks

// TaskSchedulerInterface is the worker pool used by the HTTP layer to run
// pipeline tasks in the background.
//
//	scheduler := NewScheduler(workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRunPipelineTask(siteID, runner))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
