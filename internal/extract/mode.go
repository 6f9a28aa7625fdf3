package extract

const (
	LatestMessage Mode = iota
	LatestOtp
)

type Mode int64

func (m Mode) String() string {
	switch m {
	case LatestMessage:
		return "latest_message"
	case LatestOtp:
		return "latest_otp"
	}

	return "unknown"
}
