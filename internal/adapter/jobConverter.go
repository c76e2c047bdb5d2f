package adapter

import (
	"fmt"

	"github.com/akolanti/landbot/internal/api"
	"github.com/akolanti/landbot/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	res := api.JobResponse{
		Id:             job.Id,
		DocumentName:   job.JobPayload.IngestFileName,
		Status:         string(job.Status),
		Step:           string(job.CurrentStep),
		ChunksIngested: job.JobPayload.ChunksIngested,
		Error:          errorPtr,
		StartTime:      job.CreatedTime,
	}
	if job.Done() && !job.EndTime.IsZero() {
		end := job.EndTime
		res.EndTime = &end
	}
	return res
}

func BadRequest(message string, code string, details string) api.ErrorResponse {
	return api.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	}
}
