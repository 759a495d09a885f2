package service

// User-facing copy. The alias placeholders are filled with fmt.Sprintf.
const (
	msgWelcome = "Welcome to Anonymous Chat! 👋\nPick your gender to be matched with the opposite gender.\nUse Next for another match, Stop to end the conversation."

	msgAlreadyChatting = "You are already in a chat! 📱\nUse the buttons below to go Next or Stop."

	msgSearching = "Searching... ⏳\nWaiting for a partner. You will appear as %s."

	msgChatStarted = "Chat started! 🎉\nYou are paired with %s.\nSend a message, photo or sticker to begin!"

	msgPartnerMovedOn = "Your partner moved to the next match. 🔄\nPick your gender to be matched again."

	msgPartnerStopped = "Your partner stopped the conversation. 🛑"

	msgStopped = "Conversation stopped. 👋\n/start to begin again."

	msgNotPairedYet = "You are not in a chat yet. ⏳\nWait a moment or use the buttons below."

	msgNotPaired = "You are not currently paired. 📱\nUse /start first."

	msgPickAgain = "Pick your gender to be matched again. 👇"

	msgRateLimited = "Too fast! ⏱️\nWait a second before sending again."

	msgForbidden = "Your message contains a forbidden word. ❌\nTry again."

	msgTransient = "Sorry, something went wrong. Please try again."

	relayPrefix = "Anon: "
)
