package queue

import (
	"github.com/ristomat/socialcast/internal/service"
	"github.com/ristomat/socialcast/internal/transfer"
)

type Queue struct {
	ps service.PublishService
}

func NewQueue(ps service.PublishService) *Queue {
	return &Queue{ps: ps}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	Request transfer.PublishCreation `json:"request"`
}
