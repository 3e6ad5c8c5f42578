// Package avs implements the downchannel protocol client.
//
// The client holds one persistent websocket connection to the gateway.
// JSON text frames carry directives and events; binary frames carry
// attachment content that the client streams into an attachment
// registry, keyed by content ID, so capability code can consume it with
// an attachment reader.
//
// Basic usage:
//
//	mgr := attachment.New()
//	client, err := avs.New(mgr, tokenProvider)
//	if err != nil {
//		return err
//	}
//	client.AddDirectiveHandler(func(d *avs.Directive) {
//		// dispatch on d.Header.Namespace / d.Header.Name
//	})
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close()
//
// Directive payloads reference streamed content with "cid:" URLs; use
// ContentID to recover the attachment ID for the registry.
package avs
