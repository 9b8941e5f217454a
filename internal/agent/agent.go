// Package agent holds the handlers a routed prompt is executed by: log
// root-cause analysis, transaction data queries and the canned replies.
package agent

import (
	"fmt"

	"github.com/zulandar/sensei/internal/txid"
)

// GreetingMessage answers a bare greeting.
const GreetingMessage = `<p><strong>Hi! I'm Sensei.</strong></p>
<p>I can help with:</p>
<ul>
  <li>Investigating failures and providing RCAs.</li>
  <li>Fetching or summarizing transaction/data insights on request.</li>
</ul>
<p>How can I help you today? Ask about an incident/failure or a data/metrics request.</p>
`

// OutOfScopeMessage answers prompts no agent handles.
const OutOfScopeMessage = `<p><strong>Hi! I'm Sensei.</strong></p>
<p>I can help with:</p>
<ul>
  <li>Investigating failures and providing RCAs.</li>
  <li>Fetching or summarizing transaction/data insights on request.</li>
</ul>
<p>I stay focused on these two areas to be most helpful. Ask me about an incident/failure or a data/metrics request, and I'll jump in.</p>
`

// UpstreamFailureMessage is shown when an agent's backend call fails.
const UpstreamFailureMessage = "Sorry, I could not reach the backend agent. Please try again later."

// MissingTransactionMessage is shown when no transaction id can be resolved
// from the prompt or the chat.
func MissingTransactionMessage() string {
	return fmt.Sprintf("I couldn't find a transaction ID in your message or earlier in this chat. "+
		"Please include one in the format %s.", txid.Format)
}
