package main

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl"
	"github.com/nickyhof/deltactl/ps"
)

// Response mirrors the server protocol for consistency
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type openOptions struct {
	Alias          string `json:"alias"`
	S3Region       string `json:"s3_region"`
	S3Endpoint     string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3SessionToken string `json:"s3_session_token"`
}

var (
	mu         sync.Mutex
	handles    = map[int]*deltactl.Instance{}
	nextHandle = 1
)

func openHandle(options string) int {
	var opts openOptions
	if options != "" {
		if err := json.Unmarshal([]byte(options), &opts); err != nil {
			log.WithError(err).Warn("invalid open options")
			return -1
		}
	}

	instance, err := deltactl.Open(deltactl.Options{
		Alias: opts.Alias,
		Storage: ps.Options{
			Region:       opts.S3Region,
			Endpoint:     opts.S3Endpoint,
			AccessKey:    opts.S3AccessKey,
			SecretKey:    opts.S3SecretKey,
			SessionToken: opts.S3SessionToken,
		},
	})
	if err != nil {
		log.WithError(err).Warn("failed to open instance")
		return -1
	}

	mu.Lock()
	defer mu.Unlock()
	handle := nextHandle
	nextHandle++
	handles[handle] = instance
	return handle
}

func closeHandle(handle int) {
	mu.Lock()
	instance, ok := handles[handle]
	delete(handles, handle)
	mu.Unlock()

	if ok {
		instance.Close()
	}
}

// execute runs one request. Requests on the same handle must not overlap.
func execute(handle int, request string) []byte {
	mu.Lock()
	instance, ok := handles[handle]
	mu.Unlock()
	if !ok {
		return errorResponse("", "invalid handle")
	}

	var cmd deltactl.Command
	if err := json.Unmarshal([]byte(request), &cmd); err != nil {
		return errorResponse("", "invalid request: "+err.Error())
	}

	result, err := instance.Execute(context.Background(), cmd)
	if err != nil {
		return errorResponse(string(cmd.Name), err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(string(cmd.Name), err.Error())
	}

	jsonData, _ := json.Marshal(Response{Success: true, Type: result.Type().String(), Result: data})
	return jsonData
}

func errorResponse(typ, msg string) []byte {
	jsonData, _ := json.Marshal(Response{Success: false, Type: typ, Error: msg})
	return jsonData
}
