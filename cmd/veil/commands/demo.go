package commands

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"veil/internal/app"
	"veil/internal/domain"
	"veil/internal/protocol/loopback"
)

// printer writes notices for one demo account.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

func (p *printer) Notify(n domain.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Kind == domain.NoticeNeedsVerification {
		fmt.Fprintf(p.w, "  [%s] %s: fingerprint %s needs verification\n", p.name, n.Kind, n.Fingerprint)
		return
	}
	fmt.Fprintf(p.w, "  [%s] %s: %s\n", p.name, n.Kind, n.Text)
}

type demoUser struct {
	*app.App
	address string
	peer    *domain.Peer
	inbox   chan string
}

func (u *demoUser) id() *domain.SessionIdentity { return u.Identity(u.peer, "") }

func newDemoUser(out io.Writer, net *loopback.Network, address, peer string) (*demoUser, error) {
	c := cfg
	c.Home = ""
	c.Passphrase = ""
	c.Account = "demo:" + address
	a, err := app.New(c,
		app.WithTransform(loopback.Factory(net, address)),
		app.WithNotifier(&printer{w: out, name: address}),
	)
	if err != nil {
		return nil, err
	}
	u := &demoUser{App: a, address: address, peer: a.Peer(peer), inbox: make(chan string, 16)}
	net.Register(address, func(_ string, body string) {
		text, ok, err := a.Engine.TransformIncoming(u.id(), body)
		if err == nil && ok {
			u.inbox <- text
		}
	})
	return u, nil
}

func (u *demoUser) send(net *loopback.Network, text string) error {
	frags, err := u.Engine.TransformOutgoing(u.id(), text)
	if err != nil {
		return err
	}
	for _, f := range frags {
		net.Send(u.address, u.peer.Address(), f)
	}
	return nil
}

func demoCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run two in-memory accounts through start, message, authentication and end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), secret)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "correct horse", "shared secret used for authentication")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, secret string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	net := loopback.NewNetwork()
	defer net.Close()

	alice, err := newDemoUser(out, net, "alice@example", "bob@example")
	if err != nil {
		return err
	}
	defer alice.Close()
	bob, err := newDemoUser(out, net, "bob@example", "alice@example")
	if err != nil {
		return err
	}
	defer bob.Close()

	flush := func() error {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return net.Flush(fctx)
	}
	status := func(step string) {
		fmt.Fprintf(out, "%s: alice=%s bob=%s\n", step,
			alice.Engine.Status(alice.id()), bob.Engine.Status(bob.id()))
	}

	status("initial")
	if err := alice.StartSession(alice.id()); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	status("after handshake")

	if err := alice.send(net, "hello bob"); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	select {
	case text := <-bob.inbox:
		fmt.Fprintf(out, "bob received: %q\n", text)
	default:
		return fmt.Errorf("bob received nothing")
	}

	if err := alice.Engine.InitSmp(alice.id(), "our secret?", secret); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	if err := bob.Engine.RespondSmp(bob.id(), "our secret?", secret); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	pa, _ := alice.Engine.AuthProgress(alice.id())
	pb, _ := bob.Engine.AuthProgress(bob.id())
	fmt.Fprintf(out, "authentication: alice=%s bob=%s\n", pa.Stage, pb.Stage)

	for _, fp := range alice.Trust.AllFingerprints(alice.peer) {
		fmt.Fprintf(out, "alice trusts %s: %t\n", fp, alice.Trust.IsVerified(alice.peer, fp))
	}

	if err := alice.Engine.EndSession(alice.id()); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	status("after end")
	return nil
}
