package bot

// Message set for the bot. The msgMD* strings are MarkdownV2 and carry
// their own escaping; everything else is sent as plain text.

const msgHello = "Welcome! \n\n"

const msgHelp = "📡 Use /lastheard to see the latest APRS activity on ariss.net.\n\n" +
	"🛰️ Use /track if you want to be warned when new APRS activity is " +
	"heard by the ISS.\n\n" +
	"👩‍🚀 Use /watch <callsign> to receive a notification when APRS " +
	"packets from a specific callsign is heard. Do not forget to include " +
	"the SSID.\n\n" +
	"🤖 Use /why to learn more about how this bot operates."

const msgWhy = "💡 The APRS radio aboard the ISS may not always be active. This bot " +
	"alerts you when new APRS activity is detected, providing you with " +
	"an opportunity to transmit your packets.\n\n/track operates on " +
	"the following logic: if there has been a period of six hours or more " +
	"without any activity, users will receive a notification once APRS " +
	"packets are heard again.\n\n" +
	"/watch <callsign> notifies when activity from the given callsign is " +
	"heard. The bot checks every five seconds.\n\n" +
	"This bot is developed by Rafael PU2URT. Visit aprs.tools for a " +
	"cool APRS symbol searcher.\n\n" +
	"73!"

const msgUnknown = "🤔 Sorry, I didn't understand that command."

const msgFetchFailed = "📡 Sorry, ariss.net could not be reached right now. Please try again in a moment."

const msgSubscribeFailed = "🤔 Something went wrong while setting up your subscription. Please try again."

const msgMDTrackSuccess = "🎉 Success\\! You are now tracking the APRS activity from the ISS\\. " +
	"If new activity is detected after six hours of inactivity, you will " +
	"be the first to know\\.\n\n" +
	"You can stop tracking by using /untrack\\.\n\n"

const msgAlreadyTracking = "🤔 You are already tracking APRS activity from the ISS. To stop " +
	"tracking, please use /untrack."

const msgMDNewActivity = "🛰️ New activity detected\\!\n\n"

const msgUntracked = "🛑 You are no longer tracking APRS activity from the ISS."

const msgUntrackError = "🤔 Sorry, but you are not currently tracking APRS activity from the " +
	"ISS. To start, use /track."

const msgMDWatchSuccess = "🎉 Success\\! You are now watching for activity from the callsign "

const msgMDStopWatch = "\n\nTo stop watching, use /unwatch\\."

const msgAlreadyWatching = "🤔 You are already watching a callsign. To stop, please use /unwatch."

const msgWatchUsage = "Usage: /watch <callsign>\n\nDo not forget to include the SSID, " +
	"e.g., /watch PU2URT-12."

const msgMDCallsignHeard = " has just been digipeated by the ISS\\!"

const msgUnwatched = "🛑 You are no longer watching callsign activity from the ISS."

const msgUnwatchError = "🤔 Sorry, but you are not currently watching a callsign. " +
	"To start, use: /watch <callsign>"
