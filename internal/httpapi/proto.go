package httpapi

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"
)

// maxRequestBody caps request bodies. A distance sample is 8 bytes raw or
// 9 bytes as a DoubleValue; diagnostic text from the companion is larger.
const maxRequestBody = 4096

const protobufType = "application/x-protobuf"

// isProtobuf reports whether the request body is a protobuf message. Raw
// samples arrive as application/octet-stream and are not protobuf.
func isProtobuf(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == protobufType || ct == "application/protobuf"
}

// wantsProtobuf reports whether the client asked for a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := mime.ParseMediaType(strings.TrimSpace(part))
		if mt == protobufType || mt == "application/protobuf" {
			return true
		}
	}
	return false
}

// readBody reads at most maxRequestBody bytes and reports whether the body
// was longer than that.
func readBody(r *http.Request) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, false, err
	}
	if len(body) > maxRequestBody {
		return body[:maxRequestBody], true, nil
	}
	return body, false, nil
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		// Fall back to a plain-text error if marshalling fails.
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
