package bot

// User-facing replies.
const (
	msgStartCaption     = "Send me a movie name to search."
	msgEmptyQuery       = "Please send a movie name to search."
	msgNoResults        = "No results found. The admins have been notified."
	msgRelayFailed      = "Sorry, the movie could not be sent. Please try again later."
	msgChooseResult     = "Results for %q. Select one below:"
	msgChooseLanguage   = "Results (%s) for %q. Select one below:"
	msgNothingLanguage  = "Nothing found in this language."
	msgMovieSent        = "Movie sent."
	msgMovieNotFound    = "Movie not found."
	msgInternalError    = "Something went wrong. Please try again."
	msgAdminOnly        = "This command is for admins only."
	msgUnknownCommand   = "Unknown command. Send /help for the list of commands."
	msgFeedbackUsage    = "Please write something after /feedback."
	msgFeedbackThanks   = "Thanks for your feedback!"
	msgBroadcastUsage   = "Usage: /broadcast Your message here (or reply to a message with /broadcast)"
	msgBroadcastDone    = "Broadcast sent to %d users (%d failed)."
	msgNotifyUsage      = "Usage: /notify on or /notify off"
	msgNotifyDone       = "Notification turned %s for all users (%d)."
	msgGlobalUsage      = "Usage: /globalnotify on or /globalnotify off"
	msgGlobalDone       = "Global Notify turned %s"
	msgDeleteAllDone    = "%d movies deleted."
	msgDeleteUsage      = "Usage: /delete_movie message_id"
	msgDeleteDone       = "Deleted successfully."
	msgStats            = "Users: %d\nMovies: %d\nFeedbacks: %d\nPending requests: %d"
	msgNoRequests       = "There are no pending requests."
	msgRequestsHeader   = "Pending requests (%d):"
	msgRequestsMore     = "... and %d more"
	msgRequestsCleared  = "%d requests cleared."
	msgAlreadyIndexed   = "This post is already indexed."
	msgIndexedManually  = "Indexed: %s"
	msgNotFromChannel   = "Forward posts from the source channel only."
	msgForwardNoText    = "The post has no text to index."
	labelUpdateChannel  = "Update Channel"
	labelContactAdmin   = "Contact Admin"
	maxRequestsListed   = 50
	maxChoiceLabelRunes = 40
	maxPayloadBytes     = 64
)

const userHelp = `Send me a movie name and I will find it for you.

/start - show the welcome screen
/feedback <text> - send feedback to the admins
/help - show this message`

const adminHelp = userHelp + `

Admin commands:
/stats - user, movie, feedback and request counts
/delete_all - remove every movie from the catalog
/delete_movie <id> - remove one movie
/broadcast <text> - message every user (or reply to a message)
/notify on|off - set the notification flag of every user
/globalnotify on|off - announce new uploads to users
/check_requests - list unmatched queries
/clear_requests - clear the unmatched query log`
