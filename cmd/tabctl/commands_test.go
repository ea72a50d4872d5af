package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kathulis/tabkeeper/internal/client/editsession"
	"github.com/kathulis/tabkeeper/internal/client/panel"
	"github.com/kathulis/tabkeeper/internal/client/recordapi/recordapitest"
	"github.com/kathulis/tabkeeper/internal/core/domain"
)

func newPanel(t *testing.T, role domain.Role, out *bytes.Buffer, notices *[]panel.Notice) (*panel.Panel, *recordapitest.Service) {
	t.Helper()
	svc := recordapitest.New(
		domain.Customer{ID: "1", Name: "Sam", PhoneNumber: "0712345678", Balance: decimal.NewFromInt(50)},
	)
	session := &domain.Session{Name: "Thuli", Role: role}
	if role == domain.RoleCustomer {
		session.Name, session.CustomerID = "Sam", "1"
	}
	p := panel.New(svc, session, panel.Options{
		Notifier: panel.NotifierFunc(func(n panel.Notice) { *notices = append(*notices, n) }),
		Opener:   linkOpener(out, false),
	}, zerolog.Nop())
	return p, svc
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Sam Dube", "phone=071", "Balance=-20.5"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if got[editsession.FieldName] != "Sam Dube" || got[editsession.FieldPhoneNumber] != "071" || got[editsession.FieldBalance] != "-20.5" {
		t.Fatalf("unexpected fields: %v", got)
	}

	for _, bad := range [][]string{nil, {"name"}, {"age=3"}} {
		var ue usageError
		if _, err := parseAssignments(bad); !errors.As(err, &ue) {
			t.Fatalf("%v: expected usage error, got %v", bad, err)
		}
	}
}

func TestCreateAndUpdate(t *testing.T) {
	var out bytes.Buffer
	var notices []panel.Notice
	p, svc := newPanel(t, domain.RoleAdmin, &out, &notices)
	ctx := context.Background()

	if err := createCmd(ctx, p, &out, []string{"name=Lee", "phone_number=0720000000", "balance=12.5"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out.String(), "Lee") || !strings.Contains(out.String(), "12.50") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if len(notices) != 1 || notices[0].Title != "Customer added" || !strings.Contains(notices[0].Detail, "pw2") {
		t.Fatalf("unexpected notices: %+v", notices)
	}

	out.Reset()
	if err := updateCmd(ctx, p, &out, []string{"1", "balance=-20"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	calls := svc.Calls()
	if len(calls) < 2 {
		t.Fatalf("expected update followed by a refresh, got %+v", calls)
	}
	update, refresh := calls[len(calls)-2], calls[len(calls)-1]
	if update.Op != "update" || update.ID != "1" || update.Input.Name != "Sam" || !update.Input.Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("unexpected update call: %+v", update)
	}
	if refresh.Op != "list" {
		t.Fatalf("commit should refresh the list, last call was %+v", refresh)
	}
	rec, ok := findCustomer(p.Customers(), "1")
	if !ok || !rec.Balance.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("refreshed list should hold the new balance, got %+v", p.Customers())
	}
}

func findCustomer(cs []domain.Customer, id string) (domain.Customer, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Customer{}, false
}

func TestCreate_InvalidBalanceIsReported(t *testing.T) {
	var out bytes.Buffer
	var notices []panel.Notice
	p, svc := newPanel(t, domain.RoleAdmin, &out, &notices)

	err := createCmd(context.Background(), p, &out, []string{"name=Lee", "phone_number=072", "balance=lots"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if svc.CallCount("create") != 0 {
		t.Fatalf("invalid draft must not reach the service")
	}
	if len(notices) != 1 || notices[0].Fields["balance"] == "" {
		t.Fatalf("expected a balance notice, got %+v", notices)
	}
	if p.Drafts().Mode() != editsession.ModeNone {
		t.Fatalf("draft should be cancelled after a failed save")
	}
}

func TestRemindPrintsLink(t *testing.T) {
	var out bytes.Buffer
	var notices []panel.Notice
	p, _ := newPanel(t, domain.RoleAdmin, &out, &notices)

	if err := remindCmd(context.Background(), p, &out, []string{"1", "sms"}); err != nil {
		t.Fatalf("remind: %v", err)
	}
	if !strings.HasPrefix(out.String(), "sms:+27712345678?body=Hello") {
		t.Fatalf("unexpected link: %q", out.String())
	}

	var ue usageError
	if err := remindCmd(context.Background(), p, &out, []string{"1", "pigeon"}); !errors.As(err, &ue) {
		t.Fatalf("expected usage error for unknown channel, got %v", err)
	}
}

func TestMe(t *testing.T) {
	var out bytes.Buffer
	var notices []panel.Notice
	p, _ := newPanel(t, domain.RoleCustomer, &out, &notices)

	if err := meCmd(context.Background(), p, &out, nil); err != nil {
		t.Fatalf("me: %v", err)
	}
	if out.String() != "Welcome, Sam!\nYour balance: 50.00\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}

	if err := createCmd(context.Background(), p, &out, []string{"name=Sneaky"}); err == nil {
		t.Fatalf("customer must not create records")
	}
}

func TestFormatNotice(t *testing.T) {
	got := formatNotice(panel.Notice{
		Level:  panel.LevelWarn,
		Title:  "Please check the form",
		Fields: map[string]string{"phone_number": "phone_number is required", "balance": "balance must be a number"},
	})
	want := "[warn] Please check the form\n  balance: balance must be a number\n  phone_number: phone_number is required\n"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}
