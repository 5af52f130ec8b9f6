package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cast"
	"github.com/yiplee/structs"
)

// printRecord print the top level fields of v, nested values as json
func printRecord(w io.Writer, v interface{}) {
	fields := structs.Map(v)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, err := cast.ToStringE(fields[k])
		if err != nil {
			b, _ := json.Marshal(fields[k])
			value = string(b)
		}

		fmt.Fprintf(w, "%-28s %s\n", k, value)
	}
}

func printJSON(w io.Writer, v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func parseAmount(s string) (uint64, error) {
	amount, err := cast.ToUint64E(s)
	if err != nil || amount == 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	return amount, nil
}
