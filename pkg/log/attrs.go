package log

import "log/slog"

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func DocumentID(id string) slog.Attr {
	return slog.String("document_id", id)
}

func FileID(id string) slog.Attr {
	return slog.String("file_id", id)
}

func Environment(env string) slog.Attr {
	return slog.String("environment", env)
}

func PollKey(key string) slog.Attr {
	return slog.String("poll_key", key)
}

func URL(u string) slog.Attr {
	return slog.String("url", u)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
