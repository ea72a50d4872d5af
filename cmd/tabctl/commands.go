package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/kathulis/tabkeeper/internal/client/editsession"
	"github.com/kathulis/tabkeeper/internal/client/panel"
	"github.com/kathulis/tabkeeper/internal/client/reminder"
	"github.com/kathulis/tabkeeper/internal/core/domain"
)

// usageError is returned for bad command arguments, before the panel is used.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

type command struct {
	summary string
	usage   string
	run     func(ctx context.Context, p *panel.Panel, w io.Writer, args []string) error
}

var commandOrder = []string{"list", "me", "create", "update", "delete", "remind"}

var commands = map[string]command{
	"list": {
		summary: "show every customer (admin) or your own record",
		usage:   "list",
		run:     listCmd,
	},
	"me": {
		summary: "show your own balance",
		usage:   "me",
		run:     meCmd,
	},
	"create": {
		summary: "add a customer; prints the generated password",
		usage:   "create name=<name> phone_number=<phone> balance=<amount>",
		run:     createCmd,
	},
	"update": {
		summary: "change fields of a customer",
		usage:   "update <id> [name=..] [phone_number=..] [balance=..]",
		run:     updateCmd,
	},
	"delete": {
		summary: "remove a customer",
		usage:   "delete <id>",
		run:     deleteCmd,
	},
	"remind": {
		summary: "open an SMS or WhatsApp payment reminder",
		usage:   "remind <id> [sms|whatsapp]",
		run:     remindCmd,
	},
}

func listCmd(ctx context.Context, p *panel.Panel, w io.Writer, args []string) error {
	if len(args) != 0 {
		return usageError{"takes no arguments"}
	}
	if err := p.Load(ctx); err != nil {
		return err
	}
	return printCustomers(w, p.Customers())
}

func meCmd(ctx context.Context, p *panel.Panel, w io.Writer, args []string) error {
	if len(args) != 0 {
		return usageError{"takes no arguments"}
	}
	rec, err := p.MyAccount(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Welcome, %s!\nYour balance: %s\n", rec.Name, rec.Balance.StringFixed(2))
	return err
}

func createCmd(ctx context.Context, p *panel.Panel, w io.Writer, args []string) error {
	fields, err := parseAssignments(args)
	if err != nil {
		return err
	}
	if err := p.NewCustomer(); err != nil {
		return err
	}
	return fillAndSave(ctx, p, w, fields)
}

func updateCmd(ctx context.Context, p *panel.Panel, w io.Writer, args []string) error {
	if len(args) < 2 {
		return usageError{"needs an id and at least one field"}
	}
	fields, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		return err
	}
	if err := p.Edit(args[0]); err != nil {
		return err
	}
	return fillAndSave(ctx, p, w, fields)
}

func fillAndSave(ctx context.Context, p *panel.Panel, w io.Writer, fields map[editsession.Field]string) error {
	for f, v := range fields {
		if err := p.Drafts().SetField(f, v); err != nil {
			p.Cancel()
			return usageError{err.Error()}
		}
	}
	rec, err := p.Save(ctx)
	if err != nil {
		p.Cancel()
		return err
	}
	return printCustomers(w, []domain.Customer{rec})
}

func deleteCmd(ctx context.Context, p *panel.Panel, _ io.Writer, args []string) error {
	if len(args) != 1 {
		return usageError{"needs exactly one id"}
	}
	return p.Delete(ctx, args[0])
}

func remindCmd(ctx context.Context, p *panel.Panel, _ io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError{"needs an id and an optional channel"}
	}
	channel := reminder.ChannelSMS
	if len(args) == 2 {
		c, err := reminder.ParseChannel(args[1])
		if err != nil {
			return usageError{err.Error()}
		}
		channel = c
	}
	if err := p.Load(ctx); err != nil {
		return err
	}
	_, err := p.Remind(ctx, args[0], channel)
	return err
}

// parseAssignments reads name=value arguments into draft fields.
func parseAssignments(args []string) (map[editsession.Field]string, error) {
	if len(args) == 0 {
		return nil, usageError{"needs at least one field=value"}
	}
	out := make(map[editsession.Field]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, usageError{fmt.Sprintf("expected field=value, got %q", arg)}
		}
		switch f := editsession.Field(strings.ToLower(strings.TrimSpace(key))); f {
		case editsession.FieldName, editsession.FieldBalance, editsession.FieldPhoneNumber:
			out[f] = value
		case "phone":
			out[editsession.FieldPhoneNumber] = value
		default:
			return nil, usageError{fmt.Sprintf("unknown field %q", key)}
		}
	}
	return out, nil
}

func printCustomers(w io.Writer, customers []domain.Customer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tBALANCE")
	for _, c := range customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.PhoneNumber, c.Balance.StringFixed(2))
	}
	return tw.Flush()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
