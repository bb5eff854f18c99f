/*
Package download hands finished GIFs to the user.

A Dispatcher takes ownership of the artifact bytes and returns a location.
Two implementations exist:

  - Directory saves into a folder without ever overwriting an existing
    file, like a browser's download manager. The command-line front end
    uses it.
  - Tickets keeps the artifact in memory under a one-shot token until the
    browser fetches it, then releases it. Unclaimed tickets expire.

Serve writes a claimed artifact as an HTTP attachment with a per-chunk
write deadline so a stalled client cannot hold the handler forever.
*/
package download
