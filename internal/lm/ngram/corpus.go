package ngram

// corpus is the embedded training text for the default model. It is shaped
// exactly like rendered conversation context (speaker tag, content, newline)
// so that tag and delimiter tokens occur in positions the codecs condition
// on. Changing a single byte here changes every distribution and therefore
// breaks decoding of previously produced messages.
const corpus = `- A: hi
- B: hey how are you
- A: pretty good thanks and you
- B: not bad just got home from work
- A: long day again
- B: yeah the meeting ran late as usual
- A: you should really talk to your boss about that
- B: maybe next week when things calm down
- A: want to grab dinner tomorrow
- B: sure where do you want to go
- A: the new place near the station looks nice
- B: sounds good what time works for you
- A: seven maybe a bit later
- B: seven is fine see you there
- A: did you watch the game last night
- B: no i was out with friends
- A: it was a great game you missed out
- B: i will catch the highlights later
- A: how is the new job going
- B: busy but i like the team a lot
- A: that is good to hear
- B: how about you anything new
- A: not much just the usual stuff
- B: we should plan a trip soon
- A: yes i was thinking the same thing
- B: maybe the coast for a weekend
- A: that sounds really nice
- B: i will check dates and let you know
- A: ok cool talk later
- B: ok bye
- A: hey are you free this weekend
- B: i think so why
- A: there is a small concert on saturday
- B: who is playing
- A: a local band my friend likes them
- B: count me in then
- A: nice i will get the tickets
- B: thanks you are the best
- A: no problem see you saturday
- B: see you then
- A: did you finish that book i gave you
- B: almost done it is really good
- A: told you the ending is great
- B: do not spoil it for me
- A: fine i will wait until you finish
- B: i should be done by friday
- A: we can talk about it over coffee
- B: deal the usual place
- A: yes around ten in the morning
- B: perfect see you friday
- A: how was your trip home
- B: fine the train was almost empty
- A: lucky you mine was packed
- B: rush hour is the worst
- A: i might start cycling to work
- B: good idea the weather is nice now
- A: do you still ride your bike
- B: every day it keeps me awake
- A: maybe we can ride together some time
- B: sure just not too early please
- A: ha ok not before eight
- B: sounds fair
- A: my sister says hi by the way
- B: oh nice say hi back
- A: she is visiting next month
- B: we should all have dinner then
- A: she would love that
- B: great let me know the dates
- A: will do
- B: anyway i need to sleep
- A: ok good night
- B: good night talk tomorrow
`
