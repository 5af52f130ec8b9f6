package lending

import (
	"fmt"
	"strings"
)

// Require returns err unless condition holds, msg is prepended to the error text
func Require(condition bool, err error, msg ...string) error {
	if condition {
		return nil
	}

	if len(msg) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(msg, " "), err)
	}

	return err
}
