package vm

import "fmt"

func checkCallArgs(method string, want, got int) error {
	if want == got {
		return nil
	}
	msg := "args error: method"
	if method != "" {
		msg = fmt.Sprintf("%s %q", msg, method)
	}
	switch want {
	case 1:
		return fmt.Errorf("%s takes 1 argument (%d given)", msg, got)
	default:
		return fmt.Errorf("%s takes %d arguments (%d given)", msg, want, got)
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
