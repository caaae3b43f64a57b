// Command opencodeweb-watch connects to a gateway as one user, keeps the
// synchronized projection running and prints every event it applies. Useful
// for verifying a deployment end to end from a terminal.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"opencodeweb/pkg/client"
	"opencodeweb/pkg/logger"
	"opencodeweb/pkg/shutdown"
	"opencodeweb/pkg/state"
)

func main() {
	base := flag.String("gateway", "http://127.0.0.1:8080/api", "gateway base URL including mount prefix")
	user := flag.String("user", "", "user identity sent as x-user-id")
	jsonOut := flag.Bool("json", false, "print events as JSON lines")
	flag.Parse()

	if *user == "" {
		log.Fatal("missing required -user flag")
	}
	logger.InitWithLevel(os.Getenv("OPENCODEWEB_LOG_LEVEL"))

	c := client.New(*base, *user)
	st := state.NewStore(c)

	remove := st.Subscribe(func(ev *client.Event) {
		if *jsonOut {
			out, err := json.Marshal(ev)
			if err != nil {
				return
			}
			fmt.Println(string(out))
			return
		}
		s := st.Snapshot()
		fmt.Printf("%-28s status=%s sessions=%d active=%s\n", ev.Type, s.Status, s.SessionTotal, s.ActiveSessionID)
	})
	defer remove()

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	fmt.Printf("watching %s as %s\n", *base, *user)
	st.Run(ctx)

	final := st.Snapshot()
	fmt.Printf("stopped: status=%s sessions=%d\n", final.Status, final.SessionTotal)
}
