package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "github.com/simaogato/wealthflow-portfolio/internal/adapter/grpc"
)

// remoteCmd holds the flags for the 'remote' subcommand.
type remoteCmd struct {
	addr        string
	token       string
	user        string
	from        string
	to          string
	granularity string
	timeout     time.Duration

	out  io.Writer
	dial func(addr string) (grpc.ClientConnInterface, func() error, error)
}

func (*remoteCmd) Name() string     { return "remote" }
func (*remoteCmd) Synopsis() string { return "query a running portfolio server" }
func (*remoteCmd) Usage() string {
	return `portfolioctl remote [-addr host:port] [-token <token>] [-user <id>] valuation|analytics|goals

  Calls the server's gRPC API and prints the response as JSON.
  analytics also takes -from, -to and -g; goals takes -g.
`
}

func (c *remoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "localhost:8080", "Address of the gRPC server")
	f.StringVar(&c.token, "token", os.Getenv("API_TOKEN"), "API token (defaults to $API_TOKEN)")
	f.StringVar(&c.user, "user", "demo", "User to query")
	f.StringVar(&c.from, "from", "", "Start of the analytics range (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "End of the analytics range (YYYY-MM-DD)")
	f.StringVar(&c.granularity, "g", "", "Granularity (defaults to monthly on the server)")
	f.DurationVar(&c.timeout, "timeout", 10*time.Second, "Deadline of the call")
}

func (c *remoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "remote expects exactly one of: valuation, analytics, goals")
		return subcommands.ExitUsageError
	}
	what := f.Arg(0)

	dial := c.dial
	if dial == nil {
		dial = dialInsecure
	}
	conn, closeConn, err := dial(c.addr)
	if err != nil {
		return fail("Error connecting to server", err)
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client := grpcadapter.NewClient(conn, c.token)
	var resp *structpb.Struct
	switch what {
	case "valuation":
		resp, err = client.GetValuation(ctx, c.user)
	case "analytics":
		resp, err = client.GetAnalytics(ctx, c.user, c.from, c.to, c.granularity)
	case "goals":
		resp, err = client.GetGoalProgress(ctx, c.user, c.granularity)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q\n", what)
		return subcommands.ExitUsageError
	}
	if err != nil {
		return fail("Error calling server", err)
	}

	body, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fail("Error encoding response", err)
	}
	w := c.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, string(body))
	return subcommands.ExitSuccess
}

func dialInsecure(addr string) (grpc.ClientConnInterface, func() error, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}
