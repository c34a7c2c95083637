package natsbus

import "fmt"

// Topic patterns for NATS pub/sub communication.

func TopicRunEvents(runID string) string {
	return fmt.Sprintf("events.run.%s", runID)
}

func TopicRunSteps(runID string) string {
	return fmt.Sprintf("events.run.%s.steps", runID)
}

func TopicAgentEvents(role string) string {
	return fmt.Sprintf("events.agent.%s", role)
}

const (
	TopicEventsAll      = "events.>"
	TopicEventsRuns     = "events.run.*"
	TopicEventsSchedule = "events.schedule.*"
)
