package rpc

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type ChallengeRequest struct {
	IdentityKey string `json:"identity_key"`
}

type ChallengeResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// RegisterUserRequest resolves an identity key into a user. ChallengeToken
// and Signature are only needed for wallet identities when the server
// demands a proof.
type RegisterUserRequest struct {
	IdentityKey    string `json:"identity_key"`
	ChallengeToken string `json:"challenge_token,omitempty"`
	Signature      string `json:"signature,omitempty"`
}

type RegisterUserResponse struct {
	UserID       int64     `json:"user_id"`
	IdentityKey  string    `json:"identity_key"`
	CreatedAt    time.Time `json:"created_at"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Task struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type FetchTasksRequest struct {
	IdentityKey string `json:"identity_key"`
}

type FetchTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

type AddTaskRequest struct {
	IdentityKey string `json:"identity_key"`
	Text        string `json:"text"`
}

type AddTaskResponse struct {
	Task *Task `json:"task"`
}

type CompleteTaskRequest struct {
	IdentityKey string `json:"identity_key"`
	TaskID      int64  `json:"task_id"`
}

type CompleteTaskResponse struct{}

type ExportTasksRequest struct {
	IdentityKey string `json:"identity_key"`
}

type ExportTasksResponse struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"object_key"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityScoped is implemented by requests that act on behalf of an
// identity key. The server checks it against the access token.
type IdentityScoped interface {
	GetIdentityKey() string
}

func (r *FetchTasksRequest) GetIdentityKey() string   { return r.IdentityKey }
func (r *AddTaskRequest) GetIdentityKey() string      { return r.IdentityKey }
func (r *CompleteTaskRequest) GetIdentityKey() string { return r.IdentityKey }
func (r *ExportTasksRequest) GetIdentityKey() string  { return r.IdentityKey }
