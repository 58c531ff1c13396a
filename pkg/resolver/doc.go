// Package resolver locates and renders the template for an agent response.
//
// A render walks a fixed fallback chain and stops at the first template it
// finds:
//
//  1. ui://{agent}/{response_type} from the configured Lookup
//  2. ui://app/{response_type} from the Lookup, skipped when agent is "app"
//  3. the built-in template registered for response_type
//  4. the generic catch-all template
//
// Lookup misses, timeouts and unreachable servers advance the chain. Other
// lookup errors and template failures are returned to the caller, and
// Respond turns them into an error_response fragment so a transcript always
// receives markup.
//
// Every template sees the same six variables: response, response_formatted,
// agent, prompt, timestamp and response_type.
package resolver
