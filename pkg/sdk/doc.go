// Package playsearch provides a Go client for the playsearch API: search over
// the training content assigned to a user.
//
//	client, _ := playsearch.New("http://localhost:8000")
//	_, _ = client.Login(ctx, "alice", "secret")
//	resp, _ := client.Search(ctx, "how do I open a discovery call?", playsearch.ModeAuto)
//	fmt.Println(resp.ResponseTier, resp.Answer)
//
// # Streaming
//
// Stream yields the server-sent frames as they arrive:
//
//	for ev, err := range client.Stream(ctx, "summarize the pricing play", playsearch.ModeKnowledge) {
//	    if err != nil {
//	        return err
//	    }
//	    if ev.Type == playsearch.EventChunk {
//	        fmt.Print(ev.Content)
//	    }
//	}
//
// Errors returned by the server match the package sentinels with errors.Is.
package playsearch
