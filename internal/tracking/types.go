package tracking

import "fmt"

// errCodeResourceDoesNotExist is the MLflow error code for a missing
// experiment.
const errCodeResourceDoesNotExist = "RESOURCE_DOES_NOT_EXIST"

// APIError is an error response from the MLflow REST API.
type APIError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// IsNotFound reports whether the error denotes a missing resource.
func (e *APIError) IsNotFound() bool {
	return e.ErrorCode == errCodeResourceDoesNotExist
}

// Experiment is an MLflow experiment.
type Experiment struct {
	ExperimentID   string `json:"experiment_id"`
	Name           string `json:"name"`
	LifecycleStage string `json:"lifecycle_stage"`
}

// getExperimentResponse wraps the experiment lookup endpoints' responses.
type getExperimentResponse struct {
	Experiment Experiment `json:"experiment"`
}

// searchExperimentsRequest is the body of the search endpoint.
type searchExperimentsRequest struct {
	MaxResults int `json:"max_results"`
}

// searchExperimentsResponse is the response of the search endpoint.
type searchExperimentsResponse struct {
	Experiments []Experiment `json:"experiments"`
}
