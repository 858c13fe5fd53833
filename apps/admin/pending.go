package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (cli *commandLine) pending(ctx context.Context) error {
	items, err := cli.queue.GetPending(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cli.out, "nothing to synchronise")
		return nil
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTABLE\tRECORD\tOPERATION\tCREATED")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.TableName, it.RecordID, it.Operation, it.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
