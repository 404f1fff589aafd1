package logging

import "log/slog"

// Domain identifiers

func Room(id string) slog.Attr {
	return slog.String("room_id", id)
}

func Sender(id string) slog.Attr {
	return slog.String("sender_id", id)
}

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Conn(id string) slog.Attr {
	return slog.String("conn_id", id)
}

func ClientMsg(id string) slog.Attr {
	return slog.String("client_msg_id", id)
}

func Sequence(seq int64) slog.Attr {
	return slog.Int64("sequence", seq)
}

// Error handling

func Err(err error) slog.Attr {
	return slog.Any("err", err)
}
