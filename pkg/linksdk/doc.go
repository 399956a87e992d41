/*
Package linksdk is a Go client for the league link issuance API.

Outbound email jobs use it to obtain signed action links and opaque RSVP
links without holding the link signing secret themselves:

	client := linksdk.NewClient("https://league.example.org", linksdk.StaticToken(serviceToken))

	link, err := client.IssueLink(ctx, linksdk.IssueLinkRequest{
		Action:    linksdk.ActionRSVP,
		SubjectID: memberID,
		Extra:     map[string]string{"event": eventID, "op": "attend"},
	})

The service token is an HS256 JWT carrying the links:issue scope. Creating
events additionally needs events:write.

Errors returned by the API are *APIError values and can be matched with
errors.Is against the predefined errors:

	if errors.Is(err, linksdk.ErrInvalidSubject) { ... }
*/
package linksdk
